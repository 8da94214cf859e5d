// Package ratelimit throttles repeated failed logins with a sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter counts failures per key inside a sliding window.
type Limiter interface {
	// Allow reports whether key is still under the failure limit.
	Allow(ctx context.Context, key string) (bool, error)
	// Hit records one failure for key.
	Hit(ctx context.Context, key string) error
	// Reset clears key, e.g. after a successful login.
	Reset(ctx context.Context, key string) error
}

// Config sets the window and the number of failures allowed inside it.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// ApplyDefaults sets 5 attempts per 15 minutes when unset.
func (c *Config) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
}

// MemoryLimiter is a process-local Limiter for single-node development and tests.
type MemoryLimiter struct {
	cfg  Config
	now  func() time.Time
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryLimiter returns a MemoryLimiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg.ApplyDefaults()
	return &MemoryLimiter{cfg: cfg, now: time.Now, hits: make(map[string][]time.Time)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pruneLocked(key)) < l.cfg.MaxAttempts, nil
}

func (l *MemoryLimiter) Hit(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[key] = append(l.pruneLocked(key), l.now())
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
	return nil
}

func (l *MemoryLimiter) pruneLocked(key string) []time.Time {
	cutoff := l.now().Add(-l.cfg.Window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = kept
	return kept
}
