package source

import "errors"

var (
	ErrEmptyName         = errors.New("source name is empty")
	ErrInvalidTemplate   = errors.New("source template must contain {locale}")
	ErrNoLocales         = errors.New("source supports no locales")
	ErrUnsupportedLocale = errors.New("locale not supported by source")
	// ErrMissingResource is returned without fetching when the source index
	// says the resource does not exist.
	ErrMissingResource = errors.New("resource not in source index")
	ErrFetchPanicked   = errors.New("resource fetch panicked")
)
