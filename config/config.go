package config

import (
	"context"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "l10n/config/" + string(c)
}

const (
	ctxKeyConfiguration = contextKey("configurationKey")

	defaultWorkerPoolExpiry = time.Second
	defaultLocale           = "en-US"
)

// ToContext adds configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogFormat     string `envDefault:"info"                      env:"LOG_FORMAT"      yaml:"log_format"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	LogShowStackTrace bool `envDefault:"false" env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	// Worker pool settings, the pool runs background resource fetches
	WorkerPoolCPUFactorForWorkerCount int    `envDefault:"10"  env:"WORKER_POOL_CPU_FACTOR_FOR_WORKER_COUNT" yaml:"worker_pool_cpu_factor_for_worker_count"`
	WorkerPoolCapacity                int    `envDefault:"100" env:"WORKER_POOL_CAPACITY"                    yaml:"worker_pool_capacity"`
	WorkerPoolCount                   int    `envDefault:"1"   env:"WORKER_POOL_COUNT"                       yaml:"worker_pool_count"`
	WorkerPoolExpiryDuration          string `envDefault:"1s"  env:"WORKER_POOL_EXPIRY_DURATION"             yaml:"worker_pool_expiry_duration"`

	L10nLocales      []string `envDefault:"en-US" env:"L10N_LOCALES"       envSeparator:"," yaml:"locales"`
	L10nAsync        bool     `envDefault:"false" env:"L10N_ASYNC"                          yaml:"async"`
	L10nSourcesFile  string   `envDefault:""      env:"L10N_SOURCES_FILE"                   yaml:"sources_file"`
	L10nFetchTimeout string   `envDefault:""      env:"L10N_FETCH_TIMEOUT"                  yaml:"fetch_timeout"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingFormat() string
	LoggingTimeFormat() string
	LoggingShowStackTrace() bool
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingFormat() string {
	return c.LogFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationWorkerPool interface {
	GetCPUFactor() int
	GetCapacity() int
	GetCount() int
	GetExpiryDuration() time.Duration
}

var _ ConfigurationWorkerPool = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCPUFactor() int {
	return c.WorkerPoolCPUFactorForWorkerCount
}

func (c *ConfigurationDefault) GetCapacity() int {
	return c.WorkerPoolCapacity
}

func (c *ConfigurationDefault) GetCount() int {
	return c.WorkerPoolCount
}

func (c *ConfigurationDefault) GetExpiryDuration() time.Duration {
	if c.WorkerPoolExpiryDuration != "" {
		duration, err := time.ParseDuration(c.WorkerPoolExpiryDuration)
		if err == nil {
			return duration
		}
	}
	return defaultWorkerPoolExpiry
}

// ConfigurationLocalization describes the locale fallback chain and where resources live.
type ConfigurationLocalization interface {
	// Locales returns the ordered fallback chain, highest priority first.
	Locales() []string
	AsyncFetching() bool
	SourcesFile() string
	FetchTimeout() time.Duration
}

var _ ConfigurationLocalization = new(ConfigurationDefault)

func (c *ConfigurationDefault) Locales() []string {
	locales := make([]string, 0, len(c.L10nLocales))
	for _, l := range c.L10nLocales {
		l = strings.TrimSpace(l)
		if l != "" {
			locales = append(locales, l)
		}
	}
	if len(locales) == 0 {
		return []string{defaultLocale}
	}
	return locales
}

func (c *ConfigurationDefault) AsyncFetching() bool {
	return c.L10nAsync
}

func (c *ConfigurationDefault) SourcesFile() string {
	return c.L10nSourcesFile
}

// FetchTimeout bounds background fetches; zero leaves them unbounded.
func (c *ConfigurationDefault) FetchTimeout() time.Duration {
	if c.L10nFetchTimeout != "" {
		duration, err := time.ParseDuration(c.L10nFetchTimeout)
		if err == nil && duration > 0 {
			return duration
		}
	}
	return 0
}
