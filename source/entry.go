package source

import "context"

// Entry is the single cached outcome for one path. It starts pending and is
// completed exactly once, after which text and err never change.
type Entry struct {
	done chan struct{}
	text string
	err  error
}

func newEntry() *Entry {
	return &Entry{done: make(chan struct{})}
}

// Done is closed once the fetch has completed.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// Ready reports whether the fetch has completed.
func (e *Entry) Ready() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Result blocks until the fetch completes and returns its outcome.
func (e *Entry) Result() (string, error) {
	<-e.done
	return e.text, e.err
}

// Wait is Result bounded by ctx. A cancelled wait leaves the fetch running.
func (e *Entry) Wait(ctx context.Context) (string, error) {
	select {
	case <-e.done:
		return e.text, e.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
