package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService returns a PasswordService with bcrypt cost 4, the
// minimum the library allows.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(bcrypt.MinCost)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputIsSelfDescribing(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("Password1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("embedded cost = %d, want %d", cost, bcrypt.MinCost)
	}
}

func TestHash_DefaultCost(t *testing.T) {
	ps := NewPasswordService()

	hash, err := ps.Hash("Password1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, _ := bcrypt.Cost([]byte(hash))
	if cost != DefaultCost {
		t.Errorf("embedded cost = %d, want %d", cost, DefaultCost)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_RejectsPasswordOver72Bytes(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", 73)); err == nil {
		t.Fatal("Hash() should return an error for passwords longer than 72 bytes")
	}
	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("Hash() should accept a 72-byte password, got error: %v", err)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_CorrectPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct-horse-battery-staple"); err != nil {
		t.Errorf("Verify() should return nil for a correct password, got: %v", err)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("the-real-password")

	err := ps.Verify(hash, "the-wrong-password")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Verify() error = %v, want ErrPasswordMismatch", err)
	}
}

func TestVerify_RejectsSuffixBeyond72Bytes(t *testing.T) {
	ps := newTestPasswordService()

	password := "Aa1!" + strings.Repeat("x", 68)
	hash, err := ps.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, password); err != nil {
		t.Fatalf("Verify() should accept the exact 72-byte password, got: %v", err)
	}
	err = ps.Verify(hash, password+"WRONG-SUFFIX")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Verify() error = %v, want ErrPasswordMismatch", err)
	}
}

func TestVerify_EmptyHash(t *testing.T) {
	ps := newTestPasswordService()

	err := ps.Verify("", "Password1!")
	if err == nil {
		t.Fatal("Verify() should fail against an empty hash")
	}
	if errors.Is(err, ErrPasswordMismatch) {
		t.Error("an unusable hash is not a mismatch")
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name     string
		password string
	}{
		{"simple", "Hello123!"},
		{"special characters", "p@$$w0rD!#%"},
		{"unicode", "Пароль-密码1a"},
		{"whitespace", "  Leading and trailing 1!  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", tc.password, err)
			}
			if err := ps.Verify(hash, tc.password); err != nil {
				t.Errorf("Verify() failed for %q: %v", tc.password, err)
			}
		})
	}
}
