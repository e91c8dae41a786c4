package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/media-ratings/internal/cache"
	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/metrics"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

// Maintainer keeps Media.AverageScore and the per-user rating statistics in line
// with the stored ratings. It runs after a rating mutation has committed, outside
// that mutation's transaction.
type Maintainer struct {
	media  MediaAverager
	users  UserStatistician
	cache  cache.Cache
	logger zerolog.Logger
}

// NewMaintainer builds a Maintainer. A nil cache disables invalidation.
func NewMaintainer(media MediaAverager, users UserStatistician, c cache.Cache, logger zerolog.Logger) *Maintainer {
	if c == nil {
		c = cache.Nop{}
	}
	return &Maintainer{
		media:  media,
		users:  users,
		cache:  c,
		logger: logger.With().Str("component", "aggregates").Logger(),
	}
}

// RecomputeMediaAverage rederives the media's average score. A media entry that
// no longer exists has nothing left to maintain.
func (m *Maintainer) RecomputeMediaAverage(ctx context.Context, mediaID int64) error {
	err := m.media.RecomputeAverage(ctx, mediaID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		m.logger.Debug().Int64("media_id", mediaID).Msg("media gone before recompute")
	default:
		metrics.AggregateRecomputeFailures.WithLabelValues(metrics.TargetMedia).Inc()
		m.logger.Error().Err(err).Int64("media_id", mediaID).Msg("recompute media average failed")
		return domain.Internal("recompute media average", err)
	}
	m.InvalidateTopRated(ctx)
	return nil
}

// RecomputeUserStatistics rederives the user's rating count and mean.
func (m *Maintainer) RecomputeUserStatistics(ctx context.Context, userID int64) error {
	err := m.users.RecomputeStatistics(ctx, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		m.logger.Debug().Int64("user_id", userID).Msg("user gone before recompute")
		return nil
	default:
		metrics.AggregateRecomputeFailures.WithLabelValues(metrics.TargetUser).Inc()
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("recompute user statistics failed")
		return domain.Internal("recompute user statistics", err)
	}
}

// AfterRatingChanged runs both recomputations for the pair touched by a rating
// mutation. The user's statistics are still attempted when the media recompute
// fails; the first failure is returned.
func (m *Maintainer) AfterRatingChanged(ctx context.Context, userID, mediaID int64) error {
	mediaErr := m.RecomputeMediaAverage(ctx, mediaID)
	userErr := m.RecomputeUserStatistics(ctx, userID)
	if mediaErr != nil {
		return mediaErr
	}
	return userErr
}

// AfterMediaDeleted recomputes the statistics of every user whose rating was
// removed with the media.
func (m *Maintainer) AfterMediaDeleted(ctx context.Context, raterIDs []int64) error {
	var first error
	for _, id := range raterIDs {
		if err := m.RecomputeUserStatistics(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	m.InvalidateTopRated(ctx)
	return first
}

// InvalidateTopRated retires the cached fallback list. A cache failure is logged
// only; the entry still expires on its TTL.
func (m *Maintainer) InvalidateTopRated(ctx context.Context) {
	if err := cache.InvalidateTopRated(ctx, m.cache); err != nil {
		m.logger.Warn().Err(err).Msg("invalidate top-rated cache")
	}
}
