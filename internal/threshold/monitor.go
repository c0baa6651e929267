// Package threshold evaluates numeric metrics against configured limits and
// raises alerts, with per-metric cooldown suppression against alert storms.
package threshold

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/domain"
)

// Comparison selects how a rule judges a value.
type Comparison string

const (
	CompareMax       Comparison = "max"
	CompareMin       Comparison = "min"
	CompareRange     Comparison = "range"
	CompareEquals    Comparison = "equals"
	CompareNotEquals Comparison = "not_equals"
)

// ErrUnknownComparison is returned at registration time for a comparison kind
// the monitor does not support. Registration fails fast so a misconfigured
// rule can never reach the evaluation hot path.
var ErrUnknownComparison = errors.New("threshold: unknown comparison")

// ErrBadRange is returned when a range rule has Min greater than Max.
var ErrBadRange = errors.New("threshold: range rule has min > max")

// Rule guards one metric. Limit applies to max/min/equals/not_equals
// comparisons; Min and Max apply to range.
type Rule struct {
	MetricKey  string
	Comparison Comparison
	Limit      float64
	Min        float64
	Max        float64
	Severity   domain.Severity
}

// Violation reports a metric value outside its rule's acceptable range.
type Violation struct {
	MetricKey string
	Value     float64
	Limit     float64
	Severity  domain.Severity
	At        time.Time
}

// AlertSink delivers violations. Best-effort: a send failure is logged by the
// monitor and never propagated.
type AlertSink interface {
	Send(ctx context.Context, v *Violation) error
}

// Monitor holds registered rules and per-metric alert suppression state.
type Monitor struct {
	sink     AlertSink
	clock    domain.Clock
	cooldown time.Duration

	mu        sync.Mutex
	rules     map[string]Rule
	lastAlert map[string]time.Time
}

func New(sink AlertSink, clock domain.Clock, cooldown time.Duration) *Monitor {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Monitor{
		sink:      sink,
		clock:     clock,
		cooldown:  cooldown,
		rules:     make(map[string]Rule),
		lastAlert: make(map[string]time.Time),
	}
}

// Register adds or replaces the rule for rule.MetricKey. Unknown comparison
// kinds and inverted ranges are configuration errors and fail here, not at
// evaluation time.
func (m *Monitor) Register(rule Rule) error {
	switch rule.Comparison {
	case CompareMax, CompareMin, CompareEquals, CompareNotEquals:
	case CompareRange:
		if rule.Min > rule.Max {
			return fmt.Errorf("threshold.Monitor.Register: %q: %w", rule.MetricKey, ErrBadRange)
		}
	default:
		return fmt.Errorf("threshold.Monitor.Register: %q: %w", rule.MetricKey, ErrUnknownComparison)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.MetricKey] = rule
	return nil
}

// Evaluate applies metricKey's rule to value. A violated rule always yields a
// Violation for the caller to record; whether an alert is actually emitted is
// subject to the per-metric cooldown. No rule for metricKey means no
// violation.
func (m *Monitor) Evaluate(ctx context.Context, metricKey string, value float64) *Violation {
	m.mu.Lock()
	rule, ok := m.rules[metricKey]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	v := check(rule, value, m.clock.Now())
	if v == nil {
		return nil
	}

	if m.shouldAlert(metricKey, v.At) {
		if err := m.sink.Send(ctx, v); err != nil {
			log.Error().Err(err).
				Str("metric", metricKey).
				Float64("value", value).
				Msg("threshold: alert send failed")
		}
	}

	return v
}

// Observe evaluates and discards the violation. Convenience for callers that
// only want the alerting side effect.
func (m *Monitor) Observe(ctx context.Context, metricKey string, value float64) {
	m.Evaluate(ctx, metricKey, value)
}

// shouldAlert claims the alert slot for metricKey unless one was claimed
// within the cooldown window.
func (m *Monitor) shouldAlert(metricKey string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.lastAlert[metricKey]
	if ok && now.Sub(last) < m.cooldown {
		return false
	}
	m.lastAlert[metricKey] = now
	return true
}

// check is a pure function of the rule and the value.
func check(rule Rule, value float64, now time.Time) *Violation {
	violated := false
	limit := rule.Limit

	switch rule.Comparison {
	case CompareMax:
		violated = value > rule.Limit
	case CompareMin:
		violated = value < rule.Limit
	case CompareRange:
		if value < rule.Min {
			violated, limit = true, rule.Min
		} else if value > rule.Max {
			violated, limit = true, rule.Max
		}
	case CompareEquals:
		violated = value == rule.Limit
	case CompareNotEquals:
		violated = value != rule.Limit
	}

	if !violated {
		return nil
	}

	return &Violation{
		MetricKey: rule.MetricKey,
		Value:     value,
		Limit:     limit,
		Severity:  rule.Severity,
		At:        now,
	}
}
