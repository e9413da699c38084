// Package source implements named file sources: a set of supported locales,
// a path template with a {locale} placeholder, and a per-path fetch cache.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/telemetry"
	"github.com/pitabwire/l10n/workerpool"
)

const localePlaceholder = "{locale}"

type options struct {
	index    []string
	hasIndex bool
	pool     workerpool.WorkerPool
	recorder *telemetry.FetchRecorder
	timeout  time.Duration
}

// Option configures a FileSource.
type Option func(*options)

// WithIndex declares every resource id the source holds. Requests for ids
// outside the index fail with ErrMissingResource without fetching.
func WithIndex(resourceIDs ...string) Option {
	return func(o *options) {
		o.index = append(o.index, resourceIDs...)
		o.hasIndex = true
	}
}

// WithWorkerPool runs background fetches on pool instead of fresh goroutines.
func WithWorkerPool(pool workerpool.WorkerPool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithRecorder sets the fetch metrics and span recorder.
func WithRecorder(recorder *telemetry.FetchRecorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// WithFetchTimeout bounds every background fetch.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// FileSource is an immutable description of one resource location plus the
// cache of everything fetched from it.
type FileSource struct {
	name     string
	locales  []language.Tag
	template string
	index    map[string]struct{}
	cache    *Cache
}

// New validates the definition and builds a source fetching through f.
func New(name string, locales []language.Tag, template string, f fetcher.Fetcher, opts ...Option) (*FileSource, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if !strings.Contains(template, localePlaceholder) {
		return nil, fmt.Errorf("%w: %s: %q", ErrInvalidTemplate, name, template)
	}
	if len(locales) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLocales, name)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s := &FileSource{
		name:     name,
		locales:  append([]language.Tag(nil), locales...),
		template: strings.TrimSuffix(template, "/"),
		cache:    newCache(name, f, o),
	}
	if o.hasIndex {
		s.index = make(map[string]struct{}, len(o.index))
		for _, id := range o.index {
			s.index[id] = struct{}{}
		}
	}
	return s, nil
}

func (s *FileSource) Name() string {
	return s.name
}

// Locales returns a copy of the supported locales in declaration order.
func (s *FileSource) Locales() []language.Tag {
	return append([]language.Tag(nil), s.locales...)
}

func (s *FileSource) Template() string {
	return s.template
}

// Supports reports whether the source serves locale.
func (s *FileSource) Supports(locale language.Tag) bool {
	for _, l := range s.locales {
		if l == locale {
			return true
		}
	}
	return false
}

// HasResource reports whether resourceID may exist in the source. Without
// an index every id may exist.
func (s *FileSource) HasResource(resourceID string) bool {
	if s.index == nil {
		return true
	}
	_, ok := s.index[resourceID]
	return ok
}

// PathFor expands the template for locale and appends resourceID.
func (s *FileSource) PathFor(locale language.Tag, resourceID string) (string, bool) {
	if !s.Supports(locale) {
		return "", false
	}
	dir := strings.ReplaceAll(s.template, localePlaceholder, locale.String())
	return dir + "/" + resourceID, true
}

// Fetch returns the cache entry for resourceID in locale. See Cache.Get for
// how mode affects blocking.
func (s *FileSource) Fetch(ctx context.Context, locale language.Tag, resourceID string, mode Mode) (*Entry, error) {
	path, ok := s.PathFor(locale, resourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnsupportedLocale, s.name, locale)
	}
	if !s.HasResource(resourceID) {
		return nil, fmt.Errorf("%w: %s: %s", ErrMissingResource, s.name, resourceID)
	}
	return s.cache.Get(ctx, path, mode), nil
}

// Cache exposes the fetch cache, mostly for inspection.
func (s *FileSource) Cache() *Cache {
	return s.cache
}
