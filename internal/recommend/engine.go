package recommend

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/media-ratings/internal/cache"
	"github.com/Clark-Hu/media-ratings/internal/domain"
	"github.com/Clark-Hu/media-ratings/internal/metrics"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	defaultCacheTTL = 5 * time.Minute
)

// Catalog is the read side the engine needs from persistence.
type Catalog interface {
	FindRatedAtLeast(ctx context.Context, userID int64, minStars int) ([]domain.Media, error)
	FindNotRatedBy(ctx context.Context, userID int64) ([]domain.Media, error)
	FindTopRated(ctx context.Context, limit int) ([]domain.Media, error)
}

// Options tunes an Engine. Zero values select defaults.
type Options struct {
	DefaultLimit int
	Cache        cache.Cache
	CacheTTL     time.Duration
}

// Engine computes recommendation lists on demand. It holds no per-user state and
// never writes to the catalogue.
type Engine struct {
	catalog      Catalog
	cache        cache.Cache
	ttl          time.Duration
	defaultLimit int
	logger       zerolog.Logger
}

// NewEngine builds an Engine over catalog.
func NewEngine(catalog Catalog, opts Options, logger zerolog.Logger) *Engine {
	e := &Engine{
		catalog:      catalog,
		cache:        opts.Cache,
		ttl:          opts.CacheTTL,
		defaultLimit: opts.DefaultLimit,
		logger:       logger.With().Str("component", "recommend").Logger(),
	}
	if e.cache == nil {
		e.cache = cache.Nop{}
	}
	if e.ttl <= 0 {
		e.ttl = defaultCacheTTL
	}
	if e.defaultLimit <= 0 || e.defaultLimit > MaxLimit {
		e.defaultLimit = DefaultLimit
	}
	return e
}

// Limit normalizes a requested limit: non-positive selects the default and
// anything above MaxLimit is capped.
func (e *Engine) Limit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Recommend returns at most limit media userID has not rated, best match first.
// A user without any rating of LikedThreshold stars or more gets the top-rated
// fallback list instead.
func (e *Engine) Recommend(ctx context.Context, userID int64, limit int) ([]domain.Recommendation, error) {
	started := time.Now()
	limit = e.Limit(limit)

	var liked, candidates []domain.Media
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		liked, err = e.catalog.FindRatedAtLeast(gctx, userID, LikedThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		candidates, err = e.catalog.FindNotRatedBy(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Internal("load recommendation inputs", err)
	}

	if len(liked) == 0 {
		recs, err := e.fallback(ctx, candidates, limit)
		if err != nil {
			return nil, err
		}
		metrics.RecordRecommendation(metrics.ModeFallback, started)
		return recs, nil
	}

	recs := Rank(liked, candidates, limit)
	metrics.RecordRecommendation(metrics.ModePersonalized, started)
	e.logger.Debug().
		Int64("user_id", userID).
		Int("liked", len(liked)).
		Int("candidates", len(candidates)).
		Int("returned", len(recs)).
		Msg("recommendations ranked")
	return recs, nil
}

// fallback serves the top-rated list restricted to media the user has not rated.
// When the cached list runs short after filtering, the unrated candidates are
// ordered directly.
func (e *Engine) fallback(ctx context.Context, candidates []domain.Media, limit int) ([]domain.Recommendation, error) {
	top, err := e.topRated(ctx)
	if err != nil {
		return nil, err
	}

	unrated := make(map[int64]struct{}, len(candidates))
	for _, c := range candidates {
		unrated[c.ID] = struct{}{}
	}
	picked := make([]domain.Media, 0, limit)
	for _, m := range top {
		if _, ok := unrated[m.ID]; ok {
			picked = append(picked, m)
		}
	}
	if len(picked) < limit && len(candidates) > len(picked) {
		picked = append([]domain.Media(nil), candidates...)
		SortTopRated(picked)
	}
	return Fallback(picked, limit), nil
}

// topRatedEntry is the cached form of the top-rated list, tagged with the
// invalidation generation it was loaded under.
type topRatedEntry struct {
	Generation int64          `json:"generation"`
	Media      []domain.Media `json:"media"`
}

// topRated returns the catalogue's MaxLimit best-scored media, from cache when possible.
// The generation is read before the database so a list loaded across an
// invalidation is never accepted by later readers.
func (e *Engine) topRated(ctx context.Context) ([]domain.Media, error) {
	gen, err := cache.Generation(ctx, e.cache, cache.TopRatedGenerationKey)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		e.logger.Warn().Err(err).Msg("read top-rated generation")
		return e.loadTopRated(ctx)
	}

	raw, found, err := e.cache.Get(ctx, cache.TopRatedKey)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		e.logger.Warn().Err(err).Msg("read top-rated cache")
	case found:
		var entry topRatedEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
			e.logger.Warn().Msg("discarding undecodable top-rated cache entry")
			break
		}
		if entry.Generation == gen {
			metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
			return entry.Media, nil
		}
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	}

	media, err := e.loadTopRated(ctx)
	if err != nil {
		return nil, err
	}
	if current, err := cache.Generation(ctx, e.cache, cache.TopRatedGenerationKey); err != nil || current != gen {
		return media, nil
	}
	if payload, err := json.Marshal(topRatedEntry{Generation: gen, Media: media}); err == nil {
		if err := e.cache.Set(ctx, cache.TopRatedKey, payload, e.ttl); err != nil {
			e.logger.Warn().Err(err).Msg("write top-rated cache")
		}
	}
	return media, nil
}

func (e *Engine) loadTopRated(ctx context.Context) ([]domain.Media, error) {
	media, err := e.catalog.FindTopRated(ctx, MaxLimit)
	if err != nil {
		return nil, domain.Internal("load top-rated media", err)
	}
	return media, nil
}
