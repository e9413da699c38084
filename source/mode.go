package source

// Mode selects how a resource fetch is carried out.
type Mode int

const (
	// ModeSync fetches on the calling goroutine and blocks until the text is ready.
	ModeSync Mode = iota
	// ModeAsync starts the fetch in the background and returns a pending entry.
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}
