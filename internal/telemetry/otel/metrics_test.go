package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Set]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[attribute.Set]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				out[dp.Attributes] = dp.Value
			}
		}
	}
	return out
}

func TestSessionMetrics_Counts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewSessionMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.Login(ctx, "success")
	m.Login(ctx, "success")
	m.Login(ctx, "invalid_credentials")
	m.Revoked(ctx, "reuse_detected", 3)
	m.Revoked(ctx, "logout", 0)

	logins := collectSum(t, reader, "riverside.session.logins")
	assert.Equal(t, int64(2), logins[attribute.NewSet(attribute.String("outcome", "success"))])
	assert.Equal(t, int64(1), logins[attribute.NewSet(attribute.String("outcome", "invalid_credentials"))])

	revoked := collectSum(t, reader, "riverside.session.revoked")
	assert.Equal(t, int64(3), revoked[attribute.NewSet(attribute.String("reason", "reuse_detected"))])
	_, ok := revoked[attribute.NewSet(attribute.String("reason", "logout"))]
	assert.False(t, ok, "zero revocations should not be recorded")
}

func TestSessionMetrics_NilSafe(t *testing.T) {
	var m *SessionMetrics
	m.Login(context.Background(), "success")
	m.Refresh(context.Background(), "success")

	noop, err := NewSessionMetrics(nil)
	require.NoError(t, err)
	noop.Refresh(context.Background(), "success")
}
