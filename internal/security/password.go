package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooShort is returned by Hash for passwords below MinPasswordLength.
var ErrPasswordTooShort = errors.New("password too short")

// MinPasswordLength is the minimum accepted plaintext length.
const MinPasswordLength = 6

const (
	argon2Version  = 19
	saltLength     = 16
	keyLength      = 32
	maxMemoryKiB   = 1 << 20
	maxIterations  = 16
	maxParallelism = 16
)

// Argon2Params are the argon2id cost parameters used for new hashes.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2Params is 64 MiB, 3 passes, 2 lanes.
var DefaultArgon2Params = Argon2Params{MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 2}

// PasswordHasher hashes passwords with argon2id and verifies argon2id or legacy bcrypt hashes.
// Callers must not log or persist plaintext passwords.
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher clamps params into supported bounds; zero values fall back to DefaultArgon2Params.
func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultArgon2Params.MemoryKiB
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultArgon2Params.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultArgon2Params.Parallelism
	}
	params.MemoryKiB = min(params.MemoryKiB, maxMemoryKiB)
	params.Iterations = min(params.Iterations, maxIterations)
	params.Parallelism = min(params.Parallelism, maxParallelism)
	return &PasswordHasher{params: params}
}

// Params returns the parameters used for new hashes.
func (h *PasswordHasher) Params() Argon2Params {
	return h.params
}

// Hash returns an argon2id PHC string:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<key>
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, keyLength)
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether password matches storedHash. Malformed or unsupported hashes return false.
func (h *PasswordHasher) Verify(password, storedHash string) bool {
	switch {
	case strings.HasPrefix(storedHash, "$argon2id$"):
		return verifyArgon2id(password, storedHash)
	case strings.HasPrefix(storedHash, "$2a$"), strings.HasPrefix(storedHash, "$2b$"), strings.HasPrefix(storedHash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether storedHash should be replaced with a fresh argon2id hash
// (legacy bcrypt or weaker parameters).
func (h *PasswordHasher) NeedsRehash(storedHash string) bool {
	p, _, _, ok := decodeArgon2id(storedHash)
	if !ok {
		return true
	}
	return p.MemoryKiB < h.params.MemoryKiB || p.Iterations < h.params.Iterations || p.Parallelism < h.params.Parallelism
}

func verifyArgon2id(password, encoded string) bool {
	p, salt, expected, ok := decodeArgon2id(encoded)
	if !ok {
		return false
	}
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return Argon2Params{}, nil, nil, false
	}
	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2Params{}, nil, nil, false
	}
	if mem == 0 || it == 0 || par == 0 || mem > maxMemoryKiB || it > maxIterations || par > maxParallelism {
		return Argon2Params{}, nil, nil, false
	}
	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) < 8 || len(salt) > 64 {
		return Argon2Params{}, nil, nil, false
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) < 16 || len(key) > 128 {
		return Argon2Params{}, nil, nil, false
	}
	return Argon2Params{MemoryKiB: mem, Iterations: it, Parallelism: uint8(par)}, salt, key, true
}
