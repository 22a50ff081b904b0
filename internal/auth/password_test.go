package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Minimum bcrypt cost keeps these tests fast.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(bcrypt.MinCost)
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash = %q, want $2a$ prefix", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	h1, _ := ps.Hash("correct horse")
	h2, _ := ps.Hash("correct horse")
	if h1 == h2 {
		t.Error("two hashes of the same password are identical; salt missing?")
	}
}

func TestHash_LengthBounds(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"too short", "short", true},
		{"exactly minimum", strings.Repeat("a", MinPasswordLength), false},
		{"exactly 72 bytes", strings.Repeat("a", MaxPasswordBytes), false},
		{"73 bytes", strings.Repeat("a", MaxPasswordBytes+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ps.Hash(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Hash() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct horse"); err != nil {
		t.Errorf("Verify(correct) error = %v", err)
	}
	if err := ps.Verify(hash, "wrong horse"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify(wrong) error = %v, want ErrPasswordMismatch", err)
	}
	if err := ps.Verify("not-a-hash", "correct horse"); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify(garbage hash) error = %v, want a non-mismatch error", err)
	}
}
