package registry

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/resolver"
)

// ErrResourceMissing is returned by Bundle.Resource for a resource no source could provide.
var ErrResourceMissing = errors.New("resource missing from bundle")

type bundleResource struct {
	source string
	text   string
	cause  error
	paths  []string

	once   sync.Once
	parsed resolver.Resource
	err    error
}

// Bundle is the set of resources found for one locale. Resources are parsed
// on first use and at most once.
type Bundle struct {
	locale      language.Tag
	resourceIDs []string
	resources   map[string]*bundleResource
	missing     []string
}

func newBundle(locale language.Tag, progress []*resourceProgress) *Bundle {
	b := &Bundle{
		locale:      locale,
		resourceIDs: make([]string, 0, len(progress)),
		resources:   make(map[string]*bundleResource, len(progress)),
	}
	for _, rp := range progress {
		b.resourceIDs = append(b.resourceIDs, rp.id)
		if rp.found == nil {
			b.missing = append(b.missing, rp.id)
			b.resources[rp.id] = &bundleResource{cause: rp.cause(), paths: rp.paths(locale)}
			continue
		}
		b.resources[rp.id] = &bundleResource{source: rp.found.Name(), text: rp.text}
	}
	return b
}

func (b *Bundle) Locale() language.Tag {
	return b.locale
}

// ResourceIDs lists the requested resources in request order.
func (b *Bundle) ResourceIDs() []string {
	return append([]string(nil), b.resourceIDs...)
}

// Missing lists the resources no source could provide for this locale.
func (b *Bundle) Missing() []string {
	return append([]string(nil), b.missing...)
}

// MissingCause returns why resourceID is missing, or nil if it is present.
func (b *Bundle) MissingCause(resourceID string) error {
	res, ok := b.resources[resourceID]
	if !ok || res.source != "" {
		return nil
	}
	return res.cause
}

// MissingPaths lists the paths tried for a missing resourceID, one per
// candidate source. It is empty when no source serves the locale.
func (b *Bundle) MissingPaths(resourceID string) []string {
	res, ok := b.resources[resourceID]
	if !ok || res.source != "" {
		return nil
	}
	return append([]string(nil), res.paths...)
}

// Source names the source resourceID was loaded from.
func (b *Bundle) Source(resourceID string) (string, bool) {
	res, ok := b.resources[resourceID]
	if !ok || res.source == "" {
		return "", false
	}
	return res.source, true
}

// Text returns the raw text of resourceID.
func (b *Bundle) Text(resourceID string) (string, bool) {
	res, ok := b.resources[resourceID]
	if !ok || res.source == "" {
		return "", false
	}
	return res.text, true
}

// Resource parses resourceID with r on first call and returns the cached
// result afterwards. A partially malformed resource is returned together
// with its parse error.
func (b *Bundle) Resource(resourceID string, r resolver.Resolver) (resolver.Resource, error) {
	res, ok := b.resources[resourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not requested", ErrResourceMissing, resourceID)
	}
	if res.source == "" {
		return nil, fmt.Errorf("%w: %s", ErrResourceMissing, resourceID)
	}

	res.once.Do(func() {
		res.parsed, res.err = r.Parse(b.locale, resourceID, res.text)
	})
	return res.parsed, res.err
}
