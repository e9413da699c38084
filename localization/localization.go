// Package localization formats messages against a locale fallback chain.
//
// A Localization holds a set of resource ids and walks the registry's
// bundles locale by locale until each requested message is found. Values
// are always produced: data problems are reported through a caller supplied
// error sink and an id found nowhere is returned as is.
package localization

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/pitabwire/l10n/registry"
	"github.com/pitabwire/l10n/resolver"
)

// Key is one message request in a batch.
type Key struct {
	ID   string
	Args map[string]any
}

// Option configures a Localization.
type Option func(*Localization)

// WithMode sets the initial mode; the default is registry.ModeSync.
func WithMode(mode registry.Mode) Option {
	return func(l *Localization) {
		l.async = mode == registry.ModeAsync
	}
}

// WithResolver sets the resolver used to parse resources; the default
// dispatches on the resource id extension.
func WithResolver(r resolver.Resolver) Option {
	return func(l *Localization) {
		l.resolver = r
	}
}

// generation is the walk for one resource id set. Bundles the generator has
// yielded are kept so later calls re-walk them before advancing it.
type generation struct {
	gen         *registry.Generator
	bundles     []*registry.Bundle
	drivenAsync atomic.Bool
}

// Localization formats messages for a fixed set of resource ids.
// Overlapping calls are serialized.
type Localization struct {
	registry *registry.Registry
	resolver resolver.Resolver
	calls    *semaphore.Weighted

	asyncCalls atomic.Int32

	mu          sync.Mutex
	resourceIDs []string
	async       bool
	current     *generation
}

// New creates a Localization over resourceIDs resolved through reg.
func New(reg *registry.Registry, resourceIDs []string, opts ...Option) *Localization {
	l := &Localization{
		registry:    reg,
		resolver:    resolver.Default(),
		calls:       semaphore.NewWeighted(1),
		resourceIDs: dedupe(resourceIDs),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Localization) Mode() registry.Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.async {
		return registry.ModeAsync
	}
	return registry.ModeSync
}

// SetAsync switches to async mode. A generation in progress is upgraded
// and keeps everything fetched so far.
func (l *Localization) SetAsync() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.async = true
	if l.current != nil {
		l.current.gen.UpgradeToAsync()
	}
}

// SetSync switches back to sync mode. It fails with ErrIllegalModeTransition
// while an async call is in flight or once the current generation has been
// driven asynchronously. On success any generation state is dropped; fetched
// resources stay cached in their sources.
func (l *Localization) SetSync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.async {
		return nil
	}
	if l.asyncCalls.Load() > 0 {
		return ErrIllegalModeTransition
	}
	if l.current != nil && l.current.drivenAsync.Load() {
		return ErrIllegalModeTransition
	}

	l.async = false
	l.current = nil
	return nil
}

// ResourceIDs returns the resource ids in use.
func (l *Localization) ResourceIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.resourceIDs)
}

// AddResourceIDs appends ids not already present.
func (l *Localization) AddResourceIDs(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resourceIDs = dedupe(append(l.resourceIDs, ids...))
	l.current = nil
}

// RemoveResourceIDs drops ids; unknown ids are ignored.
func (l *Localization) RemoveResourceIDs(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resourceIDs = slices.DeleteFunc(l.resourceIDs, func(id string) bool {
		return slices.Contains(ids, id)
	})
	l.current = nil
}

// SetResourceIDs replaces the resource ids.
func (l *Localization) SetResourceIDs(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resourceIDs = dedupe(ids)
	l.current = nil
}

// OnChange drops the generation state so the next call starts a fresh walk,
// for instance after the registry locales or sources changed.
func (l *Localization) OnChange() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = nil
}

// generation returns the current generation, creating it if needed, and
// whether the call should drive it asynchronously.
func (l *Localization) generation() (*generation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		mode := registry.ModeSync
		if l.async {
			mode = registry.ModeAsync
		}
		l.current = &generation{gen: l.registry.Generate(l.resourceIDs, mode)}
	}
	return l.current, l.async
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// acquire waits for the call slot, counting the call as async in flight
// when the facade is in async mode.
func (l *Localization) acquire(ctx context.Context, async bool) (func(), error) {
	if async {
		l.asyncCalls.Add(1)
	}
	release := func() {
		if async {
			l.asyncCalls.Add(-1)
		}
	}

	if err := l.calls.Acquire(ctx, 1); err != nil {
		release()
		return nil, err
	}
	return func() {
		l.calls.Release(1)
		release()
	}, nil
}
