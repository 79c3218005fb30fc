package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"atstailor/internal/cache"
	"atstailor/internal/common"
	"atstailor/internal/config"
	"atstailor/internal/dictionary"
	"atstailor/internal/errors"
	"atstailor/internal/history"
	"atstailor/internal/keywords"
	"atstailor/internal/observability"
	"atstailor/internal/service"
	"atstailor/internal/storage"
	"atstailor/internal/tailor"
)

// appOptions selects the long-lived components a command needs
type appOptions struct {
	// WatchDictionary reloads the dictionary file on change
	WatchDictionary bool
	// Observability starts tracing and metric exporters
	Observability bool
}

// app wires the tailoring stack from configuration
type app struct {
	cfg    *config.Config
	logger *errors.Logger

	dict    *dictionary.Store
	watcher *dictionary.Watcher
	cache   *cache.Tiered
	memo    *cache.MemoExtractor
	history *history.Store
	om      *observability.ObservabilityManager

	store   *storage.Store
	service *service.Service
	runner  *common.Runner

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx, opts); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, opts appOptions) error {
	dict, err := dictionary.Open(a.cfg.Dictionary.Path, keywords.DefaultOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to load dictionary: %w", err)
	}
	a.dict = dict

	if opts.WatchDictionary && a.cfg.Dictionary.Watch && a.cfg.Dictionary.Path != "" {
		a.watcher = dictionary.NewWatcher(a.cfg.Dictionary.Path, dict, a.cfg.Dictionary.DebounceDelay, a.logger)
		if err := a.watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch dictionary: %w", err)
		}
		a.onClose(func(context.Context) error { return a.watcher.Stop() })
	}

	var extractor tailor.Extractor = dict
	if a.cfg.Cache.Enabled {
		a.cache = cache.New(a.cfg.Cache, a.remoteCache(ctx), a.logger)
		go a.cache.Run(ctx, 0)
		a.onClose(func(context.Context) error { return a.cache.Close() })

		a.memo = cache.NewMemoExtractor(dict, a.cache)
		extractor = a.memo
	}

	svc := service.NewService(tailor.NewEngine(extractor, a.logger), a.cfg.Tailor.Options(), a.logger)

	if a.cfg.History.Enabled {
		a.history, err = history.Open(a.cfg.History.Path)
		if err != nil {
			return err
		}
		a.onClose(func(context.Context) error { return a.history.Close() })
		svc.WithHistory(a.history)
	}

	if opts.Observability {
		a.om, err = observability.NewObservabilityManager(observability.GetObservabilityConfig(a.cfg, Version), a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
		a.onClose(a.om.Shutdown)
		svc.WithMetrics(a.om.Metrics())
		if a.memo != nil {
			if err := a.om.Metrics().ObserveCache(a.memo.Stats); err != nil {
				a.logger.LogError(err, "Failed to register cache metrics")
			}
		}
	}

	a.service = svc
	a.store = storage.New(a.cfg.Storage, a.cfg.App.MaxFileSize, a.logger)
	a.runner = &common.Runner{
		Loader: common.NewDocumentLoader(a.store, a.cfg.App.MaxFileSize, a.logger),
		Output: common.NewOutputHandler(a.store, a.logger),
		Logger: a.logger,
	}
	return nil
}

// remoteCache connects the Redis tier. Without Redis the cache stays in memory.
func (a *app) remoteCache(ctx context.Context) cache.Remote {
	if a.cfg.Cache.RedisURL == "" {
		return nil
	}
	rs, err := cache.NewRedisStore(ctx, a.cfg.Cache, a.logger)
	if err != nil {
		a.logger.LogError(err, "Redis unavailable, using in-memory cache only")
		return nil
	}
	return rs
}

// cacheStats reports the memo cache, nil when caching is disabled
func (a *app) cacheStats() func() cache.Stats {
	if a.memo == nil {
		return nil
	}
	return a.memo.Stats
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases components in reverse order of creation
func (a *app) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}
