package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Badrul886/riverside/internal/user/domain"
)

func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("CreateAndLookup", func(t *testing.T) {
		r := newRepo(t)
		u := &domain.User{ID: "u1", Name: "Ann", Email: "Ann@Example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}
		if err := r.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
		byEmail, err := r.GetByEmail(ctx, " ann@example.COM")
		if err != nil {
			t.Fatalf("GetByEmail: %v", err)
		}
		if byEmail == nil || byEmail.ID != "u1" || byEmail.Role != domain.RoleUser || byEmail.Email != "ann@example.com" {
			t.Fatalf("GetByEmail = %+v", byEmail)
		}
		byID, err := r.GetByID(ctx, "u1")
		if err != nil || byID == nil {
			t.Fatalf("GetByID = %v, %v", byID, err)
		}
		missing, err := r.GetByEmail(ctx, "nobody@example.com")
		if err != nil || missing != nil {
			t.Errorf("GetByEmail missing = %v, %v; want nil, nil", missing, err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		r := newRepo(t)
		if err := r.Create(ctx, &domain.User{ID: "u1", Email: "dup@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		err := r.Create(ctx, &domain.User{ID: "u2", Email: "DUP@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("duplicate Create: want ErrEmailTaken, got %v", err)
		}
	})

	t.Run("RecordLoginAndRehash", func(t *testing.T) {
		r := newRepo(t)
		if err := r.Create(ctx, &domain.User{ID: "u1", Email: "a@x.com", PasswordHash: "old", CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		at := now.Add(time.Minute)
		if err := r.RecordLogin(ctx, "u1", at); err != nil {
			t.Fatalf("RecordLogin: %v", err)
		}
		if err := r.UpdatePasswordHash(ctx, "u1", "new"); err != nil {
			t.Fatalf("UpdatePasswordHash: %v", err)
		}
		u, _ := r.GetByID(ctx, "u1")
		if u.LastLoginAt == nil || !u.LastLoginAt.Equal(at) {
			t.Errorf("LastLoginAt = %v, want %v", u.LastLoginAt, at)
		}
		if u.PasswordHash != "new" {
			t.Errorf("PasswordHash = %q, want %q", u.PasswordHash, "new")
		}
	})
}
