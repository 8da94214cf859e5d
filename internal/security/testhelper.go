package security

import "time"

// NewTestTokenSigner returns a signer with fixed, distinct test secrets. Do not use in production.
func NewTestTokenSigner() (*TokenSigner, error) {
	return NewTokenSigner(TokenSignerConfig{
		AccessSecret:  []byte("test-access-secret-0123456789abcdef"),
		RefreshSecret: []byte("test-refresh-secret-0123456789abcdef"),
		Issuer:        "riverside-test",
		AccessTTL:     15 * time.Minute,
	})
}

// SetClock replaces the signer's time source. Intended for tests that need expired tokens.
func (s *TokenSigner) SetClock(now func() time.Time) {
	s.now = now
}

// NewTestPasswordHasher returns a hasher with cheap argon2id parameters for tests.
func NewTestPasswordHasher() *PasswordHasher {
	return NewPasswordHasher(Argon2Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1})
}
