package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Badrul886/riverside/internal/session/domain"
)

// contractUsers must exist before a contract run (the Postgres schema has a users FK).
var contractUsers = []string{"user-1", "user-2"}

func newContractSession(userID, family, tokenHash string, createdAt time.Time) *domain.Session {
	return &domain.Session{
		ID:                uuid.New().String(),
		UserID:            userID,
		RefreshTokenHash:  tokenHash,
		TokenFamily:       family,
		DeviceFingerprint: "fp",
		UserAgent:         "test-agent",
		IPAddress:         "127.0.0.1",
		ExpiresAt:         createdAt.Add(7 * 24 * time.Hour),
		CreatedAt:         createdAt,
	}
}

// runRepositoryContract exercises the behavior every Repository implementation must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("CreateAndFind", func(t *testing.T) {
		r := newRepo(t)
		s := newContractSession("user-1", "fam-1", "hash-create", base)
		if err := r.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := r.FindByRefreshToken(ctx, "hash-create")
		if err != nil {
			t.Fatalf("FindByRefreshToken: %v", err)
		}
		if got.ID != s.ID || got.TokenFamily != "fam-1" || got.Revoked {
			t.Errorf("found %+v", got)
		}
		if _, err := r.FindByRefreshToken(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByRefreshToken missing: want ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateDuplicateToken", func(t *testing.T) {
		r := newRepo(t)
		if err := r.Create(ctx, newContractSession("user-1", "fam-a", "hash-dup", base)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		err := r.Create(ctx, newContractSession("user-1", "fam-b", "hash-dup", base))
		if !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate Create: want ErrConflict, got %v", err)
		}
	})

	t.Run("UpdateRotateCompareAndSwap", func(t *testing.T) {
		r := newRepo(t)
		s := newContractSession("user-1", "fam-rot", "hash-old", base)
		if err := r.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
		newExp := base.Add(15 * 24 * time.Hour)
		if err := r.UpdateRotate(ctx, s.ID, "hash-old", "hash-new", newExp); err != nil {
			t.Fatalf("UpdateRotate: %v", err)
		}
		if err := r.UpdateRotate(ctx, s.ID, "hash-old", "hash-other", newExp); !errors.Is(err, ErrNotFound) {
			t.Errorf("second UpdateRotate with stale hash: want ErrNotFound, got %v", err)
		}
		if _, err := r.FindByRefreshToken(ctx, "hash-old"); !errors.Is(err, ErrNotFound) {
			t.Errorf("old hash still resolves: %v", err)
		}
		got, err := r.FindByRefreshToken(ctx, "hash-new")
		if err != nil {
			t.Fatalf("FindByRefreshToken new: %v", err)
		}
		if got.ID != s.ID || got.TokenFamily != "fam-rot" || !got.ExpiresAt.Equal(newExp) || got.RotatedAt == nil {
			t.Errorf("rotated session = %+v", got)
		}
		if err := r.UpdateRotate(ctx, "no-such-session", "hash-new", "x", newExp); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateRotate unknown id: want ErrNotFound, got %v", err)
		}
	})

	t.Run("RevokeIsIdempotent", func(t *testing.T) {
		r := newRepo(t)
		s := newContractSession("user-1", "fam-rev", "hash-rev", base)
		if err := r.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := r.Revoke(ctx, s.ID, domain.ReasonLogout); err != nil {
				t.Fatalf("Revoke #%d: %v", i+1, err)
			}
		}
		if err := r.Revoke(ctx, "no-such-session", domain.ReasonLogout); err != nil {
			t.Errorf("Revoke unknown: %v", err)
		}
		got, err := r.FindByRefreshToken(ctx, "hash-rev")
		if err != nil {
			t.Fatalf("FindByRefreshToken: %v", err)
		}
		if !got.Revoked || got.RevokedAt == nil || got.RevokedReason != domain.ReasonLogout {
			t.Errorf("revoked session = %+v", got)
		}
		if err := r.UpdateRotate(ctx, s.ID, "hash-rev", "hash-rev-2", base.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateRotate on revoked: want ErrNotFound, got %v", err)
		}
	})

	t.Run("RevokeAllInFamily", func(t *testing.T) {
		r := newRepo(t)
		a := newContractSession("user-1", "fam-x", "hash-x1", base)
		b := newContractSession("user-1", "fam-x", "hash-x2", base.Add(time.Second))
		c := newContractSession("user-1", "fam-y", "hash-y1", base.Add(2*time.Second))
		for _, s := range []*domain.Session{a, b, c} {
			if err := r.Create(ctx, s); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		n, err := r.RevokeAllInFamily(ctx, "fam-x", domain.ReasonReuseDetected)
		if err != nil {
			t.Fatalf("RevokeAllInFamily: %v", err)
		}
		if n != 2 {
			t.Errorf("revoked %d, want 2", n)
		}
		other, _ := r.FindByRefreshToken(ctx, "hash-y1")
		if other == nil || other.Revoked {
			t.Error("session in another family should stay live")
		}
		n, _ = r.RevokeAllInFamily(ctx, "fam-x", domain.ReasonReuseDetected)
		if n != 0 {
			t.Errorf("second family revoke affected %d rows, want 0", n)
		}
	})

	t.Run("RevokeAllForUserAndList", func(t *testing.T) {
		r := newRepo(t)
		first := newContractSession("user-1", "fam-1", "hash-u1", base)
		second := newContractSession("user-1", "fam-2", "hash-u2", base.Add(time.Minute))
		foreign := newContractSession("user-2", "fam-3", "hash-u3", base)
		for _, s := range []*domain.Session{second, foreign, first} {
			if err := r.Create(ctx, s); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		if err := r.Revoke(ctx, first.ID, domain.ReasonLogout); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		n, err := r.RevokeAllForUser(ctx, "user-1", domain.ReasonInvalidateAll)
		if err != nil {
			t.Fatalf("RevokeAllForUser: %v", err)
		}
		if n != 1 {
			t.Errorf("RevokeAllForUser revoked %d, want 1 (already revoked rows untouched)", n)
		}

		list, err := r.ListForUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListForUser: %v", err)
		}
		if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
			t.Fatalf("ListForUser order = %+v", list)
		}
		if list[0].RevokedAt == nil || !list[1].Revoked {
			t.Errorf("listed sessions should be revoked: %+v", list)
		}
		still, _ := r.FindByRefreshToken(ctx, "hash-u3")
		if still == nil || still.Revoked {
			t.Error("other user's session should stay live")
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		r := newRepo(t)
		old := newContractSession("user-2", "fam-old", "hash-old-exp", base.Add(-30*24*time.Hour))
		oldLive := newContractSession("user-2", "fam-old-live", "hash-old-live", base.Add(-30*24*time.Hour))
		fresh := newContractSession("user-2", "fam-new", "hash-fresh", base)
		for _, s := range []*domain.Session{old, oldLive, fresh} {
			if err := r.Create(ctx, s); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		for _, id := range []string{old.ID, fresh.ID} {
			if err := r.Revoke(ctx, id, domain.ReasonLogout); err != nil {
				t.Fatalf("Revoke: %v", err)
			}
		}
		n, err := r.DeleteExpired(ctx, base)
		if err != nil {
			t.Fatalf("DeleteExpired: %v", err)
		}
		if n != 1 {
			t.Errorf("DeleteExpired removed %d, want 1", n)
		}
		if _, err := r.FindByRefreshToken(ctx, "hash-old-exp"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expired revoked session still present: %v", err)
		}
		if _, err := r.FindByRefreshToken(ctx, "hash-old-live"); err != nil {
			t.Errorf("expired unrevoked session must be kept: %v", err)
		}
		if _, err := r.FindByRefreshToken(ctx, "hash-fresh"); err != nil {
			t.Errorf("unexpired revoked session must be kept: %v", err)
		}
	})
}
