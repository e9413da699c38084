package l10n

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/resolver"
)

// Source is a file source served by a caller supplied fetcher.
type Source struct {
	Name     string
	Locales  []string
	Template string
	Fetcher  fetcher.Fetcher
	// Index optionally lists every resource id the source holds.
	Index []string
}

// WithLocales sets the locale fallback chain, highest priority first.
func WithLocales(locales ...string) Option {
	return func(_ context.Context, s *Service) {
		tags, err := parseLocales(locales)
		if err != nil {
			s.AddStartupError(err)
			return
		}
		s.locales = tags
	}
}

// WithSources registers sources backed by the given fetchers. They are
// registered after the ones coming from source definitions.
func WithSources(sources ...Source) Option {
	return func(_ context.Context, s *Service) {
		s.sources = append(s.sources, sources...)
	}
}

// WithSourceDefinitions registers sources whose fetcher is built from the
// definition's backend and location.
func WithSourceDefinitions(definitions ...config.SourceDefinition) Option {
	return func(_ context.Context, s *Service) {
		for _, def := range definitions {
			if err := def.Validate(); err != nil {
				s.AddStartupError(err)
				continue
			}
			s.definitions = append(s.definitions, def)
		}
	}
}

// WithSourcesFile loads source definitions from a YAML file. Locales listed
// in the file replace the current chain. A file already loaded, for instance
// through L10N_SOURCES_FILE, is skipped.
func WithSourcesFile(path string) Option {
	return func(ctx context.Context, s *Service) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, loaded := s.sourcesFiles[key]; loaded {
			s.Log(ctx).WithField("file", path).Debug("sources file already loaded")
			return
		}

		locales, definitions, err := config.LoadSources(path)
		if err != nil {
			s.AddStartupError(fmt.Errorf("sources file %s: %w", path, err))
			return
		}
		s.sourcesFiles[key] = struct{}{}
		if len(locales) > 0 {
			WithLocales(locales...)(ctx, s)
		}
		WithSourceDefinitions(definitions...)(ctx, s)
	}
}

// WithHTTPOptions configures the clients of http backed sources.
func WithHTTPOptions(opts ...fetcher.HTTPOption) Option {
	return func(_ context.Context, s *Service) {
		s.httpOptions = append(s.httpOptions, opts...)
	}
}

// WithResolver sets the resolver handed to every Localization.
func WithResolver(r resolver.Resolver) Option {
	return func(_ context.Context, s *Service) {
		s.resolver = r
	}
}

func parseLocales(locales []string) ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", l, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
