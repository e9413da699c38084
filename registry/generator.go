package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pitabwire/util"
	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/source"
)

// Step is the outcome of one Poll.
type Step struct {
	// Bundle is set when a locale was completed.
	Bundle *Bundle
	// Pending is set when a fetch for the current locale is outstanding; it
	// is closed once that fetch completes and Poll should be called again.
	Pending <-chan struct{}
	// Done is set once every locale has been visited.
	Done bool
}

// suspension decides what happens when a needed fetch is still pending.
type suspension interface {
	mode() Mode
	// await returns nil once e is complete, or a channel to wait on.
	await(e *source.Entry) <-chan struct{}
}

type blockingStrategy struct{}

func (blockingStrategy) mode() Mode { return ModeSync }

func (blockingStrategy) await(e *source.Entry) <-chan struct{} {
	<-e.Done()
	return nil
}

type yieldingStrategy struct{}

func (yieldingStrategy) mode() Mode { return ModeAsync }

func (yieldingStrategy) await(e *source.Entry) <-chan struct{} {
	if e.Ready() {
		return nil
	}
	return e.Done()
}

// resourceProgress tracks the search for one resource across its candidate
// sources, in registration order.
type resourceProgress struct {
	id         string
	candidates []*source.FileSource
	next       int
	entry      *source.Entry
	failures   []error

	found *source.FileSource
	text  string
	done  bool
}

func (rp *resourceProgress) cause() error {
	if len(rp.failures) == 0 {
		return errNoCandidate
	}
	return errors.Join(rp.failures...)
}

func (rp *resourceProgress) paths(locale language.Tag) []string {
	out := make([]string, 0, len(rp.candidates))
	for _, src := range rp.candidates {
		if path, ok := src.PathFor(locale, rp.id); ok {
			out = append(out, path)
		}
	}
	return out
}

var errNoCandidate = errors.New("no registered source serves this locale and resource")

// Generator walks a snapshot of the locale chain and yields one Bundle per
// locale. It is a single state machine: the cursor is at a locale or past
// the last one. Its mode only changes how an outstanding fetch is waited
// for, so upgrading from sync to async keeps all progress.
//
// A Generator is not restartable; create a new one to scan again.
type Generator struct {
	id          xid.ID
	locales     []language.Tag
	sources     []*source.FileSource
	resourceIDs []string
	async       atomic.Bool

	mu       sync.Mutex
	cursor   int
	progress []*resourceProgress
}

func newGenerator(locales []language.Tag, sources []*source.FileSource, resourceIDs []string, mode Mode) *Generator {
	g := &Generator{
		id:          xid.New(),
		locales:     locales,
		sources:     sources,
		resourceIDs: append([]string(nil), resourceIDs...),
	}
	g.async.Store(mode == ModeAsync)
	return g
}

// ID identifies the generator in logs.
func (g *Generator) ID() string {
	return g.id.String()
}

func (g *Generator) Mode() Mode {
	if g.async.Load() {
		return ModeAsync
	}
	return ModeSync
}

// UpgradeToAsync switches the generator to async mode. Fetches already
// started or completed are kept.
func (g *Generator) UpgradeToAsync() {
	g.async.Store(true)
}

// Locales returns the snapshot of the locale chain being walked.
func (g *Generator) Locales() []language.Tag {
	return append([]language.Tag(nil), g.locales...)
}

func (g *Generator) ResourceIDs() []string {
	return append([]string(nil), g.resourceIDs...)
}

// Locale returns the locale at the cursor, false once exhausted.
func (g *Generator) Locale() (language.Tag, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cursor >= len(g.locales) {
		return language.Und, false
	}
	return g.locales[g.cursor], true
}

// Exhausted reports whether every locale has been visited.
func (g *Generator) Exhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursor >= len(g.locales)
}

func (g *Generator) strategy() suspension {
	if g.async.Load() {
		return yieldingStrategy{}
	}
	return blockingStrategy{}
}

// Next returns the bundle for the next locale, or false once exhausted.
//
// In sync mode outstanding fetches block until done. In async mode Next
// waits on pending fetches or ctx; when ctx ends first it returns ctx.Err()
// and the cursor stays on the current locale, with its fetches still
// running in the background.
func (g *Generator) Next(ctx context.Context) (*Bundle, bool, error) {
	for {
		step := g.Poll(ctx)
		switch {
		case step.Done:
			return nil, false, nil
		case step.Bundle != nil:
			return step.Bundle, true, nil
		}

		select {
		case <-step.Pending:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Poll advances the generator by at most one locale. In async mode it never
// blocks on a fetch: every fetch for the current locale is started and, if
// any is still outstanding, Pending is returned without moving the cursor.
func (g *Generator) Poll(ctx context.Context) Step {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cursor >= len(g.locales) {
		return Step{Done: true}
	}

	locale := g.locales[g.cursor]
	if g.progress == nil {
		g.progress = g.plan(locale)
	}

	var pending <-chan struct{}
	for _, rp := range g.progress {
		if wait := g.advance(ctx, locale, rp); wait != nil && pending == nil {
			pending = wait
		}
	}
	if pending != nil {
		return Step{Pending: pending}
	}

	bundle := newBundle(locale, g.progress)
	g.cursor++
	g.progress = nil

	if missing := bundle.Missing(); len(missing) > 0 {
		util.Log(ctx).
			WithField("generation", g.ID()).
			WithField("locale", locale.String()).
			WithField("missing", missing).
			Debug("bundle yielded without some resources")
	}
	return Step{Bundle: bundle}
}

// plan lists, per resource, the sources that may hold it for locale.
func (g *Generator) plan(locale language.Tag) []*resourceProgress {
	progress := make([]*resourceProgress, 0, len(g.resourceIDs))
	for _, id := range g.resourceIDs {
		rp := &resourceProgress{id: id}
		for _, src := range g.sources {
			if src.Supports(locale) && src.HasResource(id) {
				rp.candidates = append(rp.candidates, src)
			}
		}
		progress = append(progress, rp)
	}
	return progress
}

// advance moves one resource forward through its candidates until it is
// found, exhausted, or waiting on a pending fetch.
func (g *Generator) advance(ctx context.Context, locale language.Tag, rp *resourceProgress) <-chan struct{} {
	for !rp.done {
		strategy := g.strategy()

		if rp.entry == nil {
			if rp.next >= len(rp.candidates) {
				rp.done = true
				return nil
			}
			entry, err := rp.candidates[rp.next].Fetch(ctx, locale, rp.id, strategy.mode())
			if err != nil {
				rp.failures = append(rp.failures, err)
				rp.next++
				continue
			}
			rp.entry = entry
		}

		if wait := strategy.await(rp.entry); wait != nil {
			return wait
		}

		text, err := rp.entry.Result()
		if err != nil {
			rp.failures = append(rp.failures, err)
			rp.entry = nil
			rp.next++
			continue
		}

		rp.found = rp.candidates[rp.next]
		rp.text = text
		rp.done = true
	}
	return nil
}
