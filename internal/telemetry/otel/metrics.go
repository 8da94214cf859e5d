package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// SessionMetrics counts security-relevant session outcomes.
type SessionMetrics struct {
	logins    metric.Int64Counter
	refreshes metric.Int64Counter
	revoked   metric.Int64Counter
}

// NewSessionMetrics registers the counters on mp. A nil mp yields no-op counters.
func NewSessionMetrics(mp metric.MeterProvider) (*SessionMetrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("github.com/Badrul886/riverside/session")
	logins, err := meter.Int64Counter("riverside.session.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("riverside.session.refreshes",
		metric.WithDescription("Refresh attempts by outcome"))
	if err != nil {
		return nil, err
	}
	revoked, err := meter.Int64Counter("riverside.session.revoked",
		metric.WithDescription("Sessions revoked by reason"))
	if err != nil {
		return nil, err
	}
	return &SessionMetrics{logins: logins, refreshes: refreshes, revoked: revoked}, nil
}

// Login records a login outcome such as "success", "invalid_credentials" or "throttled".
func (m *SessionMetrics) Login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Refresh records a refresh outcome.
func (m *SessionMetrics) Refresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Revoked records n sessions revoked for reason.
func (m *SessionMetrics) Revoked(ctx context.Context, reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revoked.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
}
