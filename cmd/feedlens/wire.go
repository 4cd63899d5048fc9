package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/triagelab/feedlens/internal/cache"
	"github.com/triagelab/feedlens/internal/config"
	"github.com/triagelab/feedlens/internal/engine"
	"github.com/triagelab/feedlens/internal/repo"
	"github.com/triagelab/feedlens/internal/services"
	"github.com/triagelab/feedlens/internal/store"
	"github.com/triagelab/feedlens/internal/translator"
)

// engineDeps holds everything built from config that outlives a single
// command invocation.
type engineDeps struct {
	service *services.TriageService
	corpus  *store.FeedbackStore
	cache   cache.Provider
}

func (d *engineDeps) Close() {
	if d.cache != nil {
		_ = d.cache.Close()
	}
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engineDeps, error) {
	corpus, err := store.Open(ctx, cfg.Corpus.Source, cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus loaded", slog.String("source", cfg.Corpus.Source), slog.Int("items", corpus.Len()))

	scale, err := engine.ParseImportanceScale(cfg.Engine.ImportanceScale)
	if err != nil {
		return nil, fmt.Errorf("engine.importanceScale: %w", err)
	}

	cacheProvider := newCacheProvider(ctx, cfg.Cache, logger)
	deps := &engineDeps{corpus: corpus, cache: cacheProvider}

	var clusters services.ClusterSource
	switch cfg.Clustering.Mode {
	case "http":
		clusters = repo.NewClusteringClient(
			cfg.Clustering.BaseURL,
			cfg.Clustering.ClusterPath,
			cfg.Clustering.Timeout,
			cacheProvider,
			cfg.Cache.ClustersTTL,
		)
	default:
		source, err := store.NewFileClusterSource(cfg.Clustering.Path)
		if err != nil {
			// Filtering still works without clusters; grouping reports unavailable.
			logger.Warn("tagged clusters unavailable", slog.String("path", cfg.Clustering.Path), slog.Any("error", err))
		} else {
			clusters = source
		}
	}

	var coordinator *translator.Coordinator
	if cfg.Translator.BaseURL != "" {
		if cfg.Translator.APIKey == "" {
			logger.Warn("translator api key not set; requests are sent unauthenticated", slog.String("base_url", cfg.Translator.BaseURL))
		}
		nlu := repo.NewNLUClient(cfg.Translator.BaseURL, cfg.Translator.APIKey, cfg.Translator.Model, cfg.Translator.Timeout)
		coordinator = translator.NewCoordinator(translator.New(nlu, logger), logger)
	}

	deps.service = services.NewTriageService(
		logger,
		corpus,
		clusters,
		engine.NewAggregator(scale),
		coordinator,
		cfg.Translator.Timeout,
	)
	return deps, nil
}

func newCacheProvider(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if !cfg.Enabled {
		return cache.NoopProvider{}
	}
	if cfg.Mode != "valkey" {
		return cache.NewMemoryProvider()
	}
	provider, err := cache.NewValkeyProvider(ctx, cache.ValkeyConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("valkey cache unavailable, falling back to memory", slog.Any("error", err))
		return cache.NewMemoryProvider()
	}
	return provider
}
