package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Badrul886/riverside/internal/security"
	"github.com/Badrul886/riverside/internal/session/domain"
)

func TestHashPassword(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("correct horse\n"))
	root.SetArgs([]string{"hash-password", "--memory", "8192", "--iterations", "1", "--parallelism", "1"})
	require.NoError(t, root.Execute())

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, security.NewTestPasswordHasher().Verify("correct horse", hash))
}

func TestHashPassword_RejectsShortPassword(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("abc\n"))
	root.SetArgs([]string{"hash-password", "--memory", "8192", "--iterations", "1"})
	assert.Error(t, root.Execute())
}

func TestParseCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "30d", want: now.Add(-30 * 24 * time.Hour)},
		{in: "72h", want: now.Add(-72 * time.Hour)},
		{in: "2026-01-15T00:00:00Z", want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
		{in: "-1h", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCutoff(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestWriteSessions(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	err := writeSessions(&out, []domain.SessionSummary{
		{ID: "s1", TokenFamily: "f1", CreatedAt: created, ExpiresAt: created.Add(time.Hour), IPAddress: "203.0.113.7", UserAgent: "curl"},
		{ID: "s2", TokenFamily: "f2", CreatedAt: created, ExpiresAt: created.Add(time.Hour), Revoked: true},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "active")
	assert.Contains(t, lines[2], "revoked")
}

func TestCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"hash-password"},
		{"users", "create"},
		{"users", "seed"},
		{"sessions", "list"},
		{"sessions", "revoke-all"},
		{"sessions", "purge"},
		{"audit"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
