package l10n

import (
	"context"

	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/workerpool"
)

// WithWorkerPoolOptions builds the pool running async fetches, sized from
// the configuration with options applied on top.
func WithWorkerPoolOptions(options ...workerpool.Option) Option {
	return func(ctx context.Context, s *Service) {
		cfg, ok := s.Config().(config.ConfigurationWorkerPool)
		if !ok {
			s.Log(ctx).Error("worker pool configuration is not setup")
			return
		}

		wpm, err := workerpool.NewManager(ctx, cfg, options...)
		if err != nil {
			s.AddStartupError(err)
			return
		}

		if s.workerPoolManager != nil {
			_ = s.workerPoolManager.Shutdown(ctx)
		}
		s.workerPoolManager = wpm
	}
}
