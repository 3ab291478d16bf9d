package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/quickbyte/internal/archive"
	"github.com/bilgisen/quickbyte/internal/cache"
	"github.com/bilgisen/quickbyte/internal/config"
	"github.com/bilgisen/quickbyte/internal/feed"
	"github.com/bilgisen/quickbyte/internal/logger"
	"github.com/bilgisen/quickbyte/internal/scheduler"
	"github.com/bilgisen/quickbyte/internal/storage"
)

// services holds everything the subcommands share.
type services struct {
	store      *storage.Storage
	cache      cache.PageCache
	aggregator *feed.Aggregator
	scheduler  *scheduler.Scheduler
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	log := logger.Get()

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening article store: %w", err)
	}

	var pageCache cache.PageCache
	if cfg.RedisURL != "" {
		pageCache, err = cache.NewRedisClient(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		log.Info().Msg("Using Redis page cache")
	} else {
		pageCache = cache.NewMemoryCache()
		log.Info().Msg("REDIS_URL not set, using in-memory page cache")
	}

	// A nil *R2Archiver must not reach the scheduler as a non-nil interface.
	var archiver scheduler.Archiver
	if cfg.ArchiveEnabled() {
		r2, err := archive.NewR2Archiver(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("R2 archive unavailable, evicted articles will not be archived")
		} else {
			archiver = r2
			log.Info().Str("bucket", cfg.R2Bucket).Msg("Archiving evicted articles to R2")
		}
	}

	if cfg.NewsAPIKey == "" {
		log.Warn().Msg("NEWSAPI_KEY is empty, provider calls will fail and stored articles will be served")
	}
	provider := feed.NewNewsAPIClient(cfg.NewsAPIBaseURL, cfg.NewsAPIKey, cfg.ProviderTimeout, cfg.ProviderRetries)

	aggregator := feed.NewAggregator(provider, store, pageCache, feed.Options{
		ProviderTimeout: cfg.ProviderTimeout,
		CacheTTL:        cfg.CacheTTL,
	})

	sched := scheduler.New(aggregator, store, archiver, scheduler.Config{
		RefreshSchedule:  cfg.RefreshSchedule,
		RefreshCountry:   cfg.RefreshCountry,
		RefreshPageSize:  cfg.RefreshPageSize,
		EvictionSchedule: cfg.EvictionSchedule,
		Retention:        cfg.Retention(),
		JobTimeout:       cfg.JobTimeout,
	})

	return &services{
		store:      store,
		cache:      pageCache,
		aggregator: aggregator,
		scheduler:  sched,
	}, nil
}

func (s *services) Close() error {
	return errors.Join(s.cache.Close(), s.store.Close())
}
