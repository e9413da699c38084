package cache

import (
	"errors"
	"fmt"
	"sync"
)

// manager manages multiple raw store instances.
type manager struct {
	caches sync.Map // map[string]RawCache
}

// NewManager creates a new manager.
func NewManager() Manager {
	return &manager{}
}

// AddCache adds a raw store with the given name.
func (cm *manager) AddCache(name string, cache RawCache) {
	cm.caches.Store(name, cache)
}

// GetRawCache returns the raw store with the given name.
func (cm *manager) GetRawCache(name string) (RawCache, bool) {
	c, ok := cm.caches.Load(name)
	if !ok {
		return nil, false
	}
	rawCache, ok := c.(RawCache)
	return rawCache, ok
}

// RemoveCache removes and closes the store with the given name.
func (cm *manager) RemoveCache(name string) error {
	c, ok := cm.caches.LoadAndDelete(name)
	if !ok {
		return nil
	}
	rawCache, ok := c.(RawCache)
	if !ok {
		return nil
	}
	return rawCache.Close()
}

// Close closes all managed stores.
func (cm *manager) Close() error {
	var errs []error

	cm.caches.Range(func(key, value any) bool {
		if rawCache, ok := value.(RawCache); ok {
			if closeErr := rawCache.Close(); closeErr != nil {
				errs = append(errs, fmt.Errorf("closing %v: %w", key, closeErr))
			}
		}
		cm.caches.Delete(key)
		return true
	})

	return errors.Join(errs...)
}
