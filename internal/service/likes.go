package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/metrics"
	"github.com/Clark-Hu/media-ratings/internal/repository"
)

// RatingGetter loads a single rating.
type RatingGetter interface {
	GetByID(ctx context.Context, id int64) (domain.Rating, error)
}

// Ledger enforces one like per (rating, user) pair and keeps the rating's like
// counter equal to the number of recorded likes.
type Ledger struct {
	ratings RatingGetter
	likes   LikeRegistrar
	logger  zerolog.Logger
}

// NewLedger builds a Ledger.
func NewLedger(ratings RatingGetter, likes LikeRegistrar, logger zerolog.Logger) *Ledger {
	return &Ledger{
		ratings: ratings,
		likes:   likes,
		logger:  logger.With().Str("component", "likes").Logger(),
	}
}

// Like records userID's like on ratingID. registered is false only when the pair
// was already recorded. An unknown liker is NotFound; every other store failure,
// including the rating vanishing mid-transaction, is Internal.
func (l *Ledger) Like(ctx context.Context, ratingID, userID int64) (registered bool, err error) {
	rating, err := l.ratings.GetByID(ctx, ratingID)
	if err != nil {
		err = notFoundOr(err, "rating not found", "load rating")
		if isInternal(err) {
			metrics.RatingLikes.WithLabelValues(metrics.ResultError).Inc()
		}
		return false, err
	}
	if rating.UserID == userID {
		metrics.RatingLikes.WithLabelValues(metrics.ResultRejected).Inc()
		return false, domain.Forbidden("cannot like your own rating")
	}

	registered, err = l.likes.Register(ctx, ratingID, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		metrics.RatingLikes.WithLabelValues(metrics.ResultRejected).Inc()
		return false, domain.NotFound("user not found")
	}
	if err != nil {
		metrics.RatingLikes.WithLabelValues(metrics.ResultError).Inc()
		l.logger.Error().Err(err).Int64("rating_id", ratingID).Int64("user_id", userID).Msg("register like failed")
		return false, domain.Internal("register like", err)
	}
	if !registered {
		metrics.RatingLikes.WithLabelValues(metrics.ResultDuplicate).Inc()
		return false, nil
	}
	metrics.RatingLikes.WithLabelValues(metrics.ResultRegistered).Inc()
	return true, nil
}
