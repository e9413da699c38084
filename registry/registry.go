// Package registry holds the application locale chain and the registered
// file sources, and walks them locale by locale to produce bundles.
package registry

import (
	"errors"
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/source"
)

var (
	ErrDuplicateSource = errors.New("source already registered")
	ErrUnknownSource   = errors.New("source not registered")
	ErrNilSource       = errors.New("source is nil")
)

// Mode is the fetch discipline a Generator runs under.
type Mode = source.Mode

const (
	ModeSync  = source.ModeSync
	ModeAsync = source.ModeAsync
)

// Registry keeps the ordered locale chain and the sources in registration
// order. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	locales []language.Tag
	sources *orderedmap.OrderedMap[string, *source.FileSource]
}

// New creates a registry with the given locale chain, highest priority first.
func New(locales ...language.Tag) *Registry {
	return &Registry{
		locales: append([]language.Tag(nil), locales...),
		sources: orderedmap.New[string, *source.FileSource](),
	}
}

// Register builds a source from its parts and registers it.
func (r *Registry) Register(
	name string,
	locales []language.Tag,
	template string,
	f fetcher.Fetcher,
	opts ...source.Option,
) (*source.FileSource, error) {
	src, err := source.New(name, locales, template, f, opts...)
	if err != nil {
		return nil, err
	}
	if err = r.RegisterSources(src); err != nil {
		return nil, err
	}
	return src, nil
}

// RegisterSources adds sources after the ones already registered. Either all
// of them are added or, on a name collision, none.
func (r *Registry) RegisterSources(sources ...*source.FileSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if src == nil {
			return ErrNilSource
		}
		if _, ok := r.sources.Get(src.Name()); ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name())
		}
		if _, ok := seen[src.Name()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name())
		}
		seen[src.Name()] = struct{}{}
	}

	for _, src := range sources {
		r.sources.Set(src.Name(), src)
	}
	return nil
}

// UpdateSources replaces registered sources by name, keeping their position.
// The replaced sources' caches are dropped with them.
func (r *Registry) UpdateSources(sources ...*source.FileSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, src := range sources {
		if src == nil {
			return ErrNilSource
		}
		if _, ok := r.sources.Get(src.Name()); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSource, src.Name())
		}
	}
	for _, src := range sources {
		r.sources.Set(src.Name(), src)
	}
	return nil
}

// RemoveSources drops the named sources; unknown names are ignored.
func (r *Registry) RemoveSources(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		r.sources.Delete(name)
	}
}

// SetLocales replaces the locale chain. Generators already created keep
// the chain they were created with.
func (r *Registry) SetLocales(locales ...language.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locales = append([]language.Tag(nil), locales...)
}

func (r *Registry) Locales() []language.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]language.Tag(nil), r.locales...)
}

// Sources returns the registered sources in registration order.
func (r *Registry) Sources() []*source.FileSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*source.FileSource, 0, r.sources.Len())
	for pair := r.sources.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (r *Registry) Source(name string) (*source.FileSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources.Get(name)
}

func (r *Registry) HasSource(name string) bool {
	_, ok := r.Source(name)
	return ok
}

// Generate starts a walk over the current locale chain for resourceIDs.
// The chain and source list are snapshotted now.
func (r *Registry) Generate(resourceIDs []string, mode Mode) *Generator {
	return newGenerator(r.Locales(), r.Sources(), resourceIDs, mode)
}
