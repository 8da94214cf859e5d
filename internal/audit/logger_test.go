package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Badrul886/riverside/internal/audit/domain"
)

// mockAuditRepo implements the audit repository for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error) {
	return m.entries, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(context.Context) string { return "192.168.1.1" }, nil)

	logger.LogEvent(context.Background(), "user-1", ActionLoginSuccess, ResourceSession, "session_id=s1")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.UserID != "user-1" || e.Action != ActionLoginSuccess || e.Resource != ResourceSession {
		t.Errorf("entry = %+v", e)
	}
	if e.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", e.IP, "192.168.1.1")
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("id and created_at should be set")
	}
}

func TestLogger_LogEvent_NoExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "user-1", ActionLogout, ResourceSession, "")
	if len(repo.entries) != 1 || repo.entries[0].IP != "unknown" {
		t.Fatalf("entries = %+v, want one entry with ip unknown", repo.entries)
	}
}

func TestLogger_LogEvent_RepoErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo, nil, slog.New(slog.NewTextHandler(&buf, nil)))

	logger.LogEvent(context.Background(), "user-1", ActionRefresh, ResourceSession, "")

	if !strings.Contains(buf.String(), "failed to persist audit event") {
		t.Errorf("log output = %q, want persistence failure", buf.String())
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(nil, nil, slog.New(slog.NewTextHandler(&buf, nil)))
	logger.LogEvent(context.Background(), "user-1", ActionReuseDetected, ResourceSession, "family=f1")
	if !strings.Contains(buf.String(), "action=reuse_detected") {
		t.Errorf("log output = %q, want the event", buf.String())
	}
}
