package alert

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/threshold"
)

// LogSink writes violations to the process log. Used when no Slack channel is
// configured and as the default sink in tests.
type LogSink struct{}

func NewLogSink() LogSink { return LogSink{} }

func (LogSink) Send(_ context.Context, v *threshold.Violation) error {
	log.Warn().
		Str("metric", v.MetricKey).
		Float64("value", v.Value).
		Float64("limit", v.Limit).
		Str("severity", string(v.Severity)).
		Msg("alert: threshold violation")
	return nil
}
