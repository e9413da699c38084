// Package fetcher loads the raw text of localization resources by path.
//
// A path is the expanded source template joined with a resource id, for
// example "toolkit/pl/updates/history.ftl". Every backend reports a missing
// resource with an error wrapping fs.ErrNotExist.
package fetcher

import (
	"context"
	"errors"
	"io/fs"
)

// ErrUnexpectedStatus is returned by remote backends on a non success reply.
var ErrUnexpectedStatus = errors.New("unexpected fetch status")

// Fetcher returns resource text for a path.
//
// FetchSync blocks the calling goroutine until the text is available.
// Fetch honours ctx and is what background fetches run; it may be called
// from any goroutine.
type Fetcher interface {
	FetchSync(path string) (string, error)
	Fetch(ctx context.Context, path string) (string, error)
}

// IsNotFound reports whether err means the path holds no resource.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Func adapts a context aware function to a Fetcher.
type Func func(ctx context.Context, path string) (string, error)

func (f Func) FetchSync(path string) (string, error) {
	return f(context.Background(), path)
}

func (f Func) Fetch(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
