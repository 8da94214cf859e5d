package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Badrul886/riverside/internal/session/domain"
)

// MemoryRepository is a mutex-guarded in-process Repository for tests and single-node development.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session // by id
	byHash   map[string]string          // token hash -> id
	now      func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*domain.Session),
		byHash:   make(map[string]string),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[s.RefreshTokenHash]; ok {
		return ErrConflict
	}
	if _, ok := r.sessions[s.ID]; ok {
		return ErrConflict
	}
	c := *s
	r.sessions[c.ID] = &c
	r.byHash[c.RefreshTokenHash] = c.ID
	return nil
}

func (r *MemoryRepository) FindByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r.sessions[id]
	return &c, nil
}

func (r *MemoryRepository) UpdateRotate(ctx context.Context, sessionID, oldHash, newHash string, newExpiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Revoked || s.RefreshTokenHash != oldHash {
		return ErrNotFound
	}
	if _, taken := r.byHash[newHash]; taken {
		return ErrConflict
	}
	delete(r.byHash, oldHash)
	now := r.now().UTC()
	s.RefreshTokenHash = newHash
	s.ExpiresAt = newExpiresAt
	s.RotatedAt = &now
	r.byHash[newHash] = s.ID
	return nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, sessionID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		r.revokeLocked(s, reason)
	}
	return nil
}

func (r *MemoryRepository) RevokeAllInFamily(ctx context.Context, family, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.TokenFamily == family && r.revokeLocked(s, reason) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) RevokeAllForUser(ctx context.Context, userID, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && r.revokeLocked(s, reason) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListForUser(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionSummary
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.Revoked && s.ExpiresAt.Before(before) {
			delete(r.byHash, s.RefreshTokenHash)
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the session with id. Test helper; not part of Repository.
func (r *MemoryRepository) Get(id string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	c := *s
	return &c, true
}

// revokeLocked reports whether s transitioned to revoked.
func (r *MemoryRepository) revokeLocked(s *domain.Session, reason string) bool {
	if s.Revoked {
		return false
	}
	now := r.now().UTC()
	s.Revoked = true
	s.RevokedAt = &now
	s.RevokedReason = reason
	return true
}
