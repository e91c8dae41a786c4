package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Clark-Hu/media-ratings/internal/cache"
	"github.com/Clark-Hu/media-ratings/internal/config"
	httpserver "github.com/Clark-Hu/media-ratings/internal/http"
	"github.com/Clark-Hu/media-ratings/internal/logging"
	"github.com/Clark-Hu/media-ratings/internal/migration"
	"github.com/Clark-Hu/media-ratings/internal/recommend"
	"github.com/Clark-Hu/media-ratings/internal/repository"
	"github.com/Clark-Hu/media-ratings/internal/service"
	"github.com/Clark-Hu/media-ratings/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}).With().Str("service", "media-ratings").Logger()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	if cfg.RunMigrations {
		if err := migration.Run(st.Pool()); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	topRated, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	repo := repository.New(st)
	aggregates := service.NewMaintainer(repo.Media, repo.Users, topRated, logger)
	ledger := service.NewLedger(repo.Ratings, repo.Likes, logger)
	svc := httpserver.Services{
		Users:     service.NewUsers(repo.Users),
		Media:     service.NewMedia(repo.Media, aggregates),
		Ratings:   service.NewRatings(repo.Ratings, repo.Media, repo.Users, ledger, aggregates),
		Favorites: service.NewFavorites(repo.Favorites, repo.Media),
		Recommend: recommend.NewEngine(repo.Media, recommend.Options{
			DefaultLimit: cfg.RecommendDefaultLimit,
			Cache:        topRated,
			CacheTTL:     time.Duration(cfg.CacheTTLSecs) * time.Second,
		}, logger),
	}
	server := httpserver.New(cfg, st, svc, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	logger.Info().Msg("server stopped")
}

// buildCache connects to redis when REDIS_URL is set. Without it, or when redis is
// unreachable at startup, the top-rated list is read straight from postgres.
func buildCache(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Cache, func()) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set, top-rated cache disabled")
		return cache.Nop{}, func() {}
	}
	redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := cache.NewRedis(redisCtx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, top-rated cache disabled")
		return cache.Nop{}, func() {}
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis")
		}
	}
}
