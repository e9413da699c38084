// Package resolver turns resource text into formattable messages.
//
// A Resolver parses the text of one resource for one locale. The parsed
// Resource formats message ids with named arguments. Resolvers are the only
// place that knows a message syntax; everything above them deals in ids.
package resolver

import (
	"errors"
	"path"
	"strings"

	"golang.org/x/text/language"
)

var (
	// ErrMissingID reports that a resource does not define the message.
	ErrMissingID = errors.New("message id not found")
	// ErrMalformedResource reports a syntax problem in the resource or message.
	ErrMalformedResource = errors.New("malformed resource")
	// ErrMalformedArgs reports arguments that do not fit the message.
	ErrMalformedArgs = errors.New("malformed message arguments")
	// ErrUnsupportedFormat is returned when no resolver handles a resource id.
	ErrUnsupportedFormat = errors.New("unsupported resource format")
)

// Resolver parses resource text into a Resource.
//
// When only parts of the text are malformed, Parse returns a usable Resource
// holding the well formed messages together with an error wrapping
// ErrMalformedResource.
type Resolver interface {
	Parse(locale language.Tag, resourceID, text string) (Resource, error)
}

// Resource is a parsed resource that can format its messages.
type Resource interface {
	// Has reports whether the resource defines id.
	Has(id string) bool
	// Format returns the message text with args applied. A message absent from
	// the resource yields ErrMissingID. Other errors come with the best effort
	// text that could still be produced.
	Format(id string, args map[string]any) (string, error)
}

// Func adapts a function to a Resolver.
type Func func(locale language.Tag, resourceID, text string) (Resource, error)

func (f Func) Parse(locale language.Tag, resourceID, text string) (Resource, error) {
	return f(locale, resourceID, text)
}

// ByExtension picks a resolver from the extension of the resource id.
type ByExtension map[string]Resolver

// Default returns a ByExtension covering every bundled format.
func Default() ByExtension {
	messages := NewMessages()
	return ByExtension{
		".ftl":  NewFluent(),
		".toml": messages,
		".yaml": messages,
		".yml":  messages,
		".json": messages,
		".po":   NewPO(),
	}
}

func (b ByExtension) Parse(locale language.Tag, resourceID, text string) (Resource, error) {
	ext := strings.ToLower(path.Ext(resourceID))
	r, ok := b[ext]
	if !ok {
		return nil, errorf(ErrUnsupportedFormat, "%s", resourceID)
	}
	return r.Parse(locale, resourceID, text)
}
