package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/telemetry"
	"github.com/pitabwire/l10n/workerpool"
)

// Cache maps a path to the single Entry produced for it. Concurrent requests
// for one path share that entry, so the fetcher runs at most once per path
// for the life of the cache, whether it succeeds or fails.
type Cache struct {
	name     string
	fetcher  fetcher.Fetcher
	pool     workerpool.WorkerPool
	recorder *telemetry.FetchRecorder
	timeout  time.Duration

	entries sync.Map // map[string]*Entry
}

func newCache(name string, f fetcher.Fetcher, opts *options) *Cache {
	recorder := opts.recorder
	if recorder == nil {
		recorder = telemetry.NewFetchRecorder(telemetry.Providers{})
	}
	return &Cache{
		name:     name,
		fetcher:  f,
		pool:     opts.pool,
		recorder: recorder,
		timeout:  opts.timeout,
	}
}

// Get returns the entry for path, creating it and starting the fetch if this
// is the first request for path.
//
// In ModeSync the returned entry is always complete: a fresh fetch runs on
// the calling goroutine and an entry already pending, from either mode, is
// waited for. In ModeAsync the fetch is handed to the worker pool and the
// entry may still be pending; ctx only scopes values, never the lifetime of
// the fetch.
func (c *Cache) Get(ctx context.Context, path string, mode Mode) *Entry {
	fresh := newEntry()
	actual, loaded := c.entries.LoadOrStore(path, fresh)
	e := actual.(*Entry) //nolint:forcetypeassert // only *Entry values are stored

	if loaded {
		c.recorder.Coalesced(ctx, c.name)
		if mode == ModeSync {
			<-e.done
		}
		return e
	}

	if mode == ModeSync {
		c.run(ctx, e, path, mode)
		return e
	}

	bg := context.WithoutCancel(ctx)
	task := func() { c.run(bg, e, path, mode) }
	if c.pool == nil || c.pool.Submit(bg, task) != nil {
		go task()
	}
	return e
}

// Peek returns the entry for path without starting a fetch.
func (c *Cache) Peek(path string) (*Entry, bool) {
	v, ok := c.entries.Load(path)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true //nolint:forcetypeassert // only *Entry values are stored
}

// Len counts the paths requested so far, pending or complete.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) run(ctx context.Context, e *Entry, path string, mode Mode) {
	defer close(e.done)

	var deadline context.Context
	if mode == ModeAsync && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
		deadline = ctx
	}

	ctx, end := c.recorder.Start(ctx, c.name, mode.String(), path)
	defer func() {
		if r := recover(); r != nil {
			e.text = ""
			e.err = fmt.Errorf("%w: %s: %v", ErrFetchPanicked, path, r)
		}
		end(e.err)

		// A fetch cut short by the timeout is not a result: waiters see the
		// error, the next request for path fetches again.
		if deadline != nil && deadline.Err() != nil && errors.Is(e.err, context.DeadlineExceeded) {
			c.entries.CompareAndDelete(path, e)
			util.Log(ctx).
				WithField("source", c.name).
				WithField("path", path).
				Debug("resource fetch timed out, entry dropped")
			return
		}

		if e.err != nil && !fetcher.IsNotFound(e.err) {
			util.Log(ctx).WithError(e.err).
				WithField("source", c.name).
				WithField("path", path).
				Warn("resource fetch failed")
		}
	}()

	if mode == ModeSync {
		e.text, e.err = c.fetcher.FetchSync(path)
		return
	}
	e.text, e.err = c.fetcher.Fetch(ctx, path)
}
