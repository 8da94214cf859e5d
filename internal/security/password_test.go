package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewTestPasswordHasher()
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if !h.Verify("secret1", hash) {
		t.Error("Verify should accept the right password")
	}
	if h.Verify("secret2", hash) {
		t.Error("Verify should reject the wrong password")
	}
}

func TestPasswordHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewTestPasswordHasher()
	a, _ := h.Hash("secret1")
	b, _ := h.Hash("secret1")
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestPasswordHasher_TooShort(t *testing.T) {
	h := NewTestPasswordHasher()
	if _, err := h.Hash("abc"); err != ErrPasswordTooShort {
		t.Errorf("Hash short password: want ErrPasswordTooShort, got %v", err)
	}
}

func TestPasswordHasher_LegacyBcrypt(t *testing.T) {
	h := NewTestPasswordHasher()
	b, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if !h.Verify("secret1", string(b)) {
		t.Error("Verify should accept a matching bcrypt hash")
	}
	if h.Verify("nope", string(b)) {
		t.Error("Verify should reject a wrong password against bcrypt")
	}
	if !h.NeedsRehash(string(b)) {
		t.Error("bcrypt hashes should need rehash")
	}
}

func TestPasswordHasher_MalformedHashes(t *testing.T) {
	h := NewTestPasswordHasher()
	cases := []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=99999999,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$2a$10$short",
	}
	for _, c := range cases {
		if h.Verify("secret1", c) {
			t.Errorf("Verify(%q) = true, want false", c)
		}
	}
}

func TestPasswordHasher_NeedsRehash(t *testing.T) {
	weak := NewTestPasswordHasher()
	hash, err := weak.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if weak.NeedsRehash(hash) {
		t.Error("hash with current params should not need rehash")
	}
	strong := NewPasswordHasher(Argon2Params{MemoryKiB: 16 * 1024, Iterations: 2, Parallelism: 1})
	if !strong.NeedsRehash(hash) {
		t.Error("hash with weaker params should need rehash")
	}
}

func TestNewPasswordHasher_Defaults(t *testing.T) {
	h := NewPasswordHasher(Argon2Params{})
	if h.Params() != DefaultArgon2Params {
		t.Errorf("Params = %+v, want %+v", h.Params(), DefaultArgon2Params)
	}
}
