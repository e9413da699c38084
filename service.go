// Package l10n wires the locale registry, its file sources and the
// localization facade into one Service configured from the environment.
package l10n

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/util"
	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/cache"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/localization"
	"github.com/pitabwire/l10n/registry"
	"github.com/pitabwire/l10n/resolver"
	"github.com/pitabwire/l10n/telemetry"
	"github.com/pitabwire/l10n/workerpool"
)

type contextKey string

func (c contextKey) String() string {
	return "l10n/" + string(c)
}

const ctxKeyService = contextKey("serviceKey")

// Service holds together the registry, the stores and the worker pool
// backing it. One instance is meant to live as long as the application.
type Service struct {
	configuration any
	logger        *util.LogEntry

	registry          *registry.Registry
	locales           []language.Tag
	definitions       []config.SourceDefinition
	sourcesFiles      map[string]struct{}
	sources           []Source
	httpOptions       []fetcher.HTTPOption
	resolver          resolver.Resolver
	cacheManager      cache.Manager
	storesMu          sync.Mutex
	openedStores      map[string]struct{}
	sourceStores      map[string]string
	workerPoolManager workerpool.Manager
	providers         telemetry.Providers
	recorder          *telemetry.FetchRecorder

	startupErrors []error
	cleanup       func(ctx context.Context)
	stopMutex     sync.Mutex
	stopped       bool
}

type Option func(ctx context.Context, service *Service)

// NewService creates a Service from the environment configuration and opts.
// Problems met while applying options do not abort construction; they are
// collected and reported by Err.
func NewService(ctx context.Context, opts ...Option) (context.Context, *Service) {
	s := &Service{
		logger:       util.Log(ctx),
		registry:     registry.New(),
		cacheManager: cache.NewManager(),
		sourcesFiles: map[string]struct{}{},
		openedStores: map[string]struct{}{},
		sourceStores: map[string]string{},
	}

	defaultCfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		s.AddStartupError(err)
	}

	opts = append([]Option{WithConfig(&defaultCfg)}, opts...)
	s.Init(ctx, opts...)

	if s.recorder == nil {
		s.recorder = telemetry.NewFetchRecorder(s.providers)
	}
	if s.workerPoolManager == nil {
		WithWorkerPoolOptions()(ctx, s)
	}

	ctx = util.ContextWithLogger(ctx, s.logger)
	s.setupRegistry(ctx)

	ctx = ToContext(ctx, s)
	ctx = config.ToContext(ctx, s.Config())
	return ctx, s
}

// ToContext pushes a service instance into the supplied context.
func ToContext(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// FromContext obtains a service instance propagated through the context.
func FromContext(ctx context.Context) *Service {
	service, ok := ctx.Value(ctxKeyService).(*Service)
	if !ok {
		return nil
	}
	return service
}

// Init applies opts to the service.
func (s *Service) Init(ctx context.Context, opts ...Option) {
	for _, opt := range opts {
		opt(ctx, s)
	}
}

// AddStartupError records a problem met while setting the service up.
func (s *Service) AddStartupError(err error) {
	if err != nil {
		s.startupErrors = append(s.startupErrors, err)
	}
}

// Err reports every problem met while setting the service up.
func (s *Service) Err() error {
	return errors.Join(s.startupErrors...)
}

func (s *Service) Log(ctx context.Context) *util.LogEntry {
	return s.logger.WithContext(ctx)
}

// Registry returns the registry holding the locale chain and sources.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Localization creates a facade over resourceIDs. It starts in async mode
// when the configuration asks for async fetching.
func (s *Service) Localization(resourceIDs ...string) *localization.Localization {
	mode := registry.ModeSync
	if cfg, ok := s.Config().(config.ConfigurationLocalization); ok && cfg.AsyncFetching() {
		mode = registry.ModeAsync
	}

	opts := []localization.Option{localization.WithMode(mode)}
	if s.resolver != nil {
		opts = append(opts, localization.WithResolver(s.resolver))
	}
	return localization.New(s.registry, resourceIDs, opts...)
}

// CacheManager returns the stores opened for store backed sources.
func (s *Service) CacheManager() cache.Manager {
	return s.cacheManager
}

func (s *Service) WorkManager() workerpool.Manager {
	return s.workerPoolManager
}

// AddCleanupMethod adds f to the functions run by Stop, latest first.
func (s *Service) AddCleanupMethod(f func(ctx context.Context)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.cleanup == nil {
		s.cleanup = f
		return
	}

	old := s.cleanup
	s.cleanup = func(ctx context.Context) { f(ctx); old(ctx) }
}

// Stop releases the worker pool and closes every store and bucket. Fetches
// still running finish on their own. Stop is idempotent.
func (s *Service) Stop(ctx context.Context) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	s.Log(ctx).Info("service stopping")

	if s.cleanup != nil {
		s.cleanup(ctx)
	}

	if s.workerPoolManager != nil {
		if err := s.workerPoolManager.Shutdown(ctx); err != nil {
			s.Log(ctx).WithError(err).Debug("worker pool shutdown")
		}
	}

	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.Log(ctx).WithError(err).Warn("could not close stores")
		}
	}
}
