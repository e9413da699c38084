// Package fetchertest provides an in-memory Fetcher for tests.
package fetchertest

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
)

// Fetcher serves resources from a map and records how often each path was fetched.
// Paths can be held so their fetch stays pending until released, or set to fail.
type Fetcher struct {
	mu       sync.Mutex
	files    map[string]string
	failures map[string]error
	holds    map[string]chan struct{}
	calls    map[string]int
	panics   map[string]any
}

// New returns a Fetcher serving files, keyed by full path.
func New(files map[string]string) *Fetcher {
	f := &Fetcher{
		files:    make(map[string]string, len(files)),
		failures: map[string]error{},
		holds:    map[string]chan struct{}{},
		calls:    map[string]int{},
		panics:   map[string]any{},
	}
	for k, v := range files {
		f.files[k] = v
	}
	return f
}

// Set adds or replaces the text at path.
func (f *Fetcher) Set(path, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = text
}

// Fail makes every fetch of path return err.
func (f *Fetcher) Fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = err
}

// Panic makes every fetch of path panic with v.
func (f *Fetcher) Panic(path string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics[path] = v
}

// Hold keeps fetches of path pending until the returned release func is called.
func (f *Fetcher) Hold(path string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.holds[path] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Calls reports how many fetches of path have started.
func (f *Fetcher) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls reports fetches started across all paths.
func (f *Fetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Fetcher) begin(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	return f.holds[path]
}

func (f *Fetcher) result(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v, ok := f.panics[path]; ok {
		panic(v)
	}
	if err, ok := f.failures[path]; ok {
		return "", err
	}
	text, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("fetchertest %s: %w", path, fs.ErrNotExist)
	}
	return text, nil
}

func (f *Fetcher) FetchSync(path string) (string, error) {
	if gate := f.begin(path); gate != nil {
		<-gate
	}
	return f.result(path)
}

func (f *Fetcher) Fetch(ctx context.Context, path string) (string, error) {
	if gate := f.begin(path); gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.result(path)
}
