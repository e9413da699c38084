package l10n

import (
	"context"

	"github.com/pitabwire/l10n/cache"
)

// WithCache adds a store under name. Sources with the memory backend whose
// location is name read from it.
func WithCache(name string, rawCache cache.RawCache) Option {
	return func(_ context.Context, s *Service) {
		s.cacheManager.AddCache(name, rawCache)
	}
}

// WithInMemoryCache adds an in-memory store with the given name.
func WithInMemoryCache(name string) Option {
	return WithCache(name, cache.NewInMemoryCache())
}

// GetRawCache is a convenience method to get a store by name.
func (s *Service) GetRawCache(name string) (cache.RawCache, bool) {
	return s.cacheManager.GetRawCache(name)
}
