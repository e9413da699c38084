package l10n

import (
	"context"
	"fmt"

	"github.com/pitabwire/l10n/cache"
	cacheredis "github.com/pitabwire/l10n/cache/redis"
	cachevalkey "github.com/pitabwire/l10n/cache/valkey"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/source"
)

func (s *Service) setupRegistry(ctx context.Context) {
	if len(s.locales) > 0 {
		s.registry.SetLocales(s.locales...)
	}

	for _, def := range s.definitions {
		f, err := s.openFetcher(ctx, def)
		if err != nil {
			s.AddStartupError(fmt.Errorf("source %s: %w", def.Name, err))
			continue
		}

		src := Source{Name: def.Name, Locales: def.Locales, Template: def.Template, Fetcher: f, Index: def.Index}
		if err = s.AddSource(ctx, src); err != nil {
			s.AddStartupError(err)
		}
	}

	for _, src := range s.sources {
		if err := s.AddSource(ctx, src); err != nil {
			s.AddStartupError(err)
		}
	}
}

// AddSource registers src after the sources already known, sharing the
// service's worker pool, fetch timeout and telemetry.
func (s *Service) AddSource(ctx context.Context, src Source) error {
	locales, err := parseLocales(src.Locales)
	if err != nil {
		return fmt.Errorf("source %s: %w", src.Name, err)
	}

	_, err = s.registry.Register(src.Name, locales, src.Template, src.Fetcher, s.sourceOptions(src.Index)...)
	if err != nil {
		return err
	}

	s.Log(ctx).
		WithField("source", src.Name).
		WithField("locales", src.Locales).
		Debug("source registered")
	return nil
}

func (s *Service) sourceOptions(index []string) []source.Option {
	opts := []source.Option{source.WithRecorder(s.recorder)}

	if s.workerPoolManager != nil {
		if pool, err := s.workerPoolManager.GetPool(); err == nil {
			opts = append(opts, source.WithWorkerPool(pool))
		}
	}
	if cfg, ok := s.Config().(config.ConfigurationLocalization); ok && cfg.FetchTimeout() > 0 {
		opts = append(opts, source.WithFetchTimeout(cfg.FetchTimeout()))
	}
	if len(index) > 0 {
		opts = append(opts, source.WithIndex(index...))
	}
	return opts
}

func (s *Service) openFetcher(ctx context.Context, def config.SourceDefinition) (fetcher.Fetcher, error) {
	switch def.Backend {
	case config.BackendDir:
		return fetcher.NewDirPath(def.Location), nil

	case config.BackendBlob:
		b, err := fetcher.OpenBlob(ctx, def.Location)
		if err != nil {
			return nil, err
		}
		s.AddCleanupMethod(func(ctx context.Context) {
			if closeErr := b.Close(); closeErr != nil {
				s.Log(ctx).WithError(closeErr).WithField("source", def.Name).Warn("could not close bucket")
			}
		})
		return b, nil

	case config.BackendHTTP:
		return fetcher.NewHTTP(def.Location, s.httpOptions...)

	case config.BackendRedis:
		return s.openStore(def, cacheredis.New)

	case config.BackendValkey:
		return s.openStore(def, cachevalkey.New)

	case config.BackendMemory:
		name := def.Location
		if name == "" {
			name = def.Name
		}
		raw, ok := s.cacheManager.GetRawCache(name)
		if !ok {
			raw = cache.NewInMemoryCache()
			s.cacheManager.AddCache(name, raw)
		}
		s.trackStore(def.Name, name, !ok)
		return fetcher.NewStore(raw, def.Prefix), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, def.Backend)
	}
}

// openStore connects to the store at the definition's DSN. Sources naming
// the same DSN share one connection.
func (s *Service) openStore(
	def config.SourceDefinition,
	connect func(opts ...cache.Option) (cache.RawCache, error),
) (fetcher.Fetcher, error) {
	name := def.Backend + ":" + def.Location

	raw, ok := s.cacheManager.GetRawCache(name)
	if !ok {
		var err error
		raw, err = connect(cache.WithDSN(def.Location), cache.WithName(name))
		if err != nil {
			return nil, err
		}
		s.cacheManager.AddCache(name, raw)
	}
	s.trackStore(def.Name, name, !ok)
	return fetcher.NewStore(raw, def.Prefix), nil
}

// trackStore records that source reads from store. Only stores the service
// opened itself are closed by RemoveSources.
func (s *Service) trackStore(sourceName, store string, opened bool) {
	s.storesMu.Lock()
	defer s.storesMu.Unlock()

	if opened {
		s.openedStores[store] = struct{}{}
	}
	if _, ok := s.openedStores[store]; ok {
		s.sourceStores[sourceName] = store
	}
}

// RemoveSources drops the named sources from the registry. A store opened
// for them is closed once no remaining source reads from it.
func (s *Service) RemoveSources(ctx context.Context, names ...string) {
	s.registry.RemoveSources(names...)

	s.storesMu.Lock()
	defer s.storesMu.Unlock()

	released := map[string]struct{}{}
	for _, name := range names {
		if store, ok := s.sourceStores[name]; ok {
			delete(s.sourceStores, name)
			released[store] = struct{}{}
		}
	}
	for _, store := range s.sourceStores {
		delete(released, store)
	}

	for store := range released {
		delete(s.openedStores, store)
		if err := s.cacheManager.RemoveCache(store); err != nil {
			s.Log(ctx).WithError(err).WithField("store", store).Warn("could not close store")
		}
	}

	s.Log(ctx).WithField("sources", names).Debug("sources removed")
}
