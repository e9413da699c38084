package cache

import (
	"time"
)

// Option configures store connection settings.
type Option func(*Options)

// Options holds store connection configuration.
type Options struct {
	DSN    string
	Name   string
	MaxAge time.Duration
}

func WithDSN(dsn string) Option {
	return func(o *Options) {
		o.DSN = dsn
	}
}

func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithMaxAge returns an Option to configure the default expiry of stored items.
func WithMaxAge(maxAge time.Duration) Option {
	return func(o *Options) {
		o.MaxAge = maxAge
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
