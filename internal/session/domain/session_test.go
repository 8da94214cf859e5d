package domain

import (
	"testing"
	"time"
)

func TestSession_Usable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		s    Session
		want bool
	}{
		{"active", Session{ExpiresAt: now.Add(time.Hour)}, true},
		{"revoked", Session{ExpiresAt: now.Add(time.Hour), Revoked: true}, false},
		{"expired", Session{ExpiresAt: now.Add(-time.Second)}, false},
		{"expires exactly now", Session{ExpiresAt: now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Usable(now); got != tt.want {
				t.Errorf("Usable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_SummaryOmitsToken(t *testing.T) {
	s := Session{ID: "s1", UserID: "u1", RefreshTokenHash: "secret-hash", TokenFamily: "f1"}
	sum := s.Summary()
	if sum.ID != "s1" || sum.UserID != "u1" || sum.TokenFamily != "f1" {
		t.Errorf("summary = %+v", sum)
	}
}
