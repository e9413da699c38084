package localization

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Misuse errors, returned directly by the call that caused them.
var (
	ErrSyncOnAsync           = errors.New("synchronous formatting on an async localization")
	ErrIllegalModeTransition = errors.New("localization cannot return to sync mode")
)

// Sentinels matching the kind of a FormatError through errors.Is.
var (
	ErrMissingResource = errors.New("missing resource")
	ErrResolver        = errors.New("resolver error")
	ErrUnresolvable    = errors.New("message unresolvable")
)

// ErrorKind classifies a FormatError.
type ErrorKind int

const (
	// KindMissingResource means no source provided a resource for a locale.
	KindMissingResource ErrorKind = iota
	// KindResolver means the resolver failed to parse a resource or format a message.
	KindResolver
	// KindUnresolvable means no locale in the chain defines the message.
	KindUnresolvable
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingResource:
		return "missing resource"
	case KindResolver:
		return "resolver error"
	case KindUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMissingResource:
		return ErrMissingResource
	case KindResolver:
		return ErrResolver
	default:
		return ErrUnresolvable
	}
}

// FormatError is a data error met while formatting. Formatting still
// produces a value; these errors are only appended to the caller's sink.
type FormatError struct {
	Kind       ErrorKind
	ID         string
	Locale     language.Tag
	ResourceID string
	// Paths holds the resolved paths tried for a missing resource, one per
	// source serving the locale.
	Paths []string
	Cause error
}

func (e *FormatError) Error() string {
	switch e.Kind {
	case KindMissingResource:
		if len(e.Paths) > 0 {
			return fmt.Sprintf("%s: %s for %s (tried %s): %v",
				e.Kind, e.ResourceID, e.Locale, strings.Join(e.Paths, ", "), e.Cause)
		}
		return fmt.Sprintf("%s: %s for %s: %v", e.Kind, e.ResourceID, e.Locale, e.Cause)
	case KindResolver:
		if e.ID == "" {
			return fmt.Sprintf("%s: %s for %s: %v", e.Kind, e.ResourceID, e.Locale, e.Cause)
		}
		return fmt.Sprintf("%s: %s in %s for %s: %v", e.Kind, e.ID, e.ResourceID, e.Locale, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.ID)
	}
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *FormatError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Cause}
}

func appendError(errs *[]error, err *FormatError) {
	if errs != nil {
		*errs = append(*errs, err)
	}
}
