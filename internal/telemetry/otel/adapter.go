package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/Badrul886/riverside/internal/audit"
)

// LogEmitter is the subset of otellog.Logger used here; tests substitute a capture.
type LogEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// AuditEmitter forwards audit events as OTel log records. It wraps another AuditLogger so the
// event is still persisted.
type AuditEmitter struct {
	next   audit.AuditLogger
	logger LogEmitter
}

// NewAuditEmitter wraps next. With a nil provider it returns next unchanged.
func NewAuditEmitter(next audit.AuditLogger, provider *sdklog.LoggerProvider) audit.AuditLogger {
	if provider == nil {
		return next
	}
	return NewAuditEmitterWithLogger(next, provider.Logger("riverside.audit"))
}

// NewAuditEmitterWithLogger wraps next with an explicit emitter.
func NewAuditEmitterWithLogger(next audit.AuditLogger, logger LogEmitter) *AuditEmitter {
	return &AuditEmitter{next: next, logger: logger}
}

// LogEvent emits the record and then delegates.
func (e *AuditEmitter) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	rec := otellog.Record{}
	rec.SetTimestamp(time.Now().UTC())
	rec.SetSeverity(severityFor(action))
	rec.SetEventName(action)
	if metadata != "" {
		rec.SetBody(otellog.StringValue(metadata))
	}
	rec.AddAttributes(
		otellog.String("action", action),
		otellog.String("resource", resource),
	)
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	e.logger.Emit(ctx, rec)
	if e.next != nil {
		e.next.LogEvent(ctx, userID, action, resource, metadata)
	}
}

func severityFor(action string) otellog.Severity {
	switch action {
	case audit.ActionReuseDetected, audit.ActionDeviceMismatch:
		return otellog.SeverityWarn
	case audit.ActionLoginFailure, audit.ActionLoginThrottled:
		return otellog.SeverityInfo2
	default:
		return otellog.SeverityInfo
	}
}
