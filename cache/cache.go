// Package cache provides the key/value stores that resource text can be served from.
//
// A store is addressed by plain string keys and holds raw bytes. Stores know
// nothing about locales or resource ids; fetcher.Store maps resource paths
// onto keys.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by stores that have been closed.
var ErrStoreClosed = errors.New("store is closed")

// RawCache is the low-level store interface that works with bytes.
type RawCache interface {
	// Get retrieves an item from the store
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores an item with the specified TTL, zero means no expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases any resources used by the store
	Close() error
}

// Manager keeps named stores so several sources can share one connection.
type Manager interface {
	AddCache(name string, cache RawCache)
	GetRawCache(name string) (RawCache, bool)
	RemoveCache(name string) error
	Close() error
}
