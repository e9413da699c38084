package l10n

import (
	"context"

	"github.com/pitabwire/l10n/telemetry"
)

// WithTelemetry records fetch metrics and spans through providers instead of
// the global OpenTelemetry providers.
func WithTelemetry(providers telemetry.Providers) Option {
	return func(_ context.Context, s *Service) {
		s.providers = providers
		s.recorder = telemetry.NewFetchRecorder(providers)
	}
}
