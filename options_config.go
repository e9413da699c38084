package l10n

import (
	"context"

	"github.com/pitabwire/l10n/config"
)

// WithConfig specifies or overrides the configuration object of the service.
// Localization settings in cfg replace the locale chain and load the
// sources file it names.
func WithConfig(cfg any) Option {
	return func(ctx context.Context, s *Service) {
		s.configuration = cfg

		if l10nCfg, ok := cfg.(config.ConfigurationLocalization); ok {
			WithLocales(l10nCfg.Locales()...)(ctx, s)

			if path := l10nCfg.SourcesFile(); path != "" {
				WithSourcesFile(path)(ctx, s)
			}
		}

		WithLogger()(ctx, s)
	}
}

func (s *Service) Config() any {
	return s.configuration
}
