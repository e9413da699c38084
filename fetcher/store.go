package fetcher

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/pitabwire/l10n/cache"
)

// Store serves resources held in a key/value store under prefix+path.
type Store struct {
	store  cache.RawCache
	prefix string
}

// NewStore reads keys of the form prefix+path from store.
func NewStore(store cache.RawCache, prefix string) *Store {
	return &Store{store: store, prefix: prefix}
}

// Put writes the text of path into the store without expiry.
func (s *Store) Put(ctx context.Context, path, text string) error {
	return s.store.Set(ctx, s.prefix+path, []byte(text), 0)
}

func (s *Store) FetchSync(path string) (string, error) {
	return s.Fetch(context.Background(), path)
}

func (s *Store) Fetch(ctx context.Context, path string) (string, error) {
	data, ok, err := s.store.Get(ctx, s.prefix+path)
	if err != nil {
		return "", fmt.Errorf("store fetch %s: %w", path, err)
	}
	if !ok {
		return "", fmt.Errorf("store fetch %s: %w", path, fs.ErrNotExist)
	}
	return string(data), nil
}
