package application

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	t.Run("verifies the original password", func(t *testing.T) {
		t.Parallel()

		hashed, err := HashPassword("correct horse battery staple", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if !strings.HasPrefix(hashed, "$argon2id$") {
			t.Fatalf("unexpected hash format: %q", hashed)
		}

		if err := VerifyPassword(hashed, "correct horse battery staple"); err != nil {
			t.Fatalf("VerifyPassword rejected the original password: %v", err)
		}
	})

	t.Run("rejects a different password", func(t *testing.T) {
		t.Parallel()

		hashed, err := HashPassword("original", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}

		if err := VerifyPassword(hashed, "different"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("produces distinct hashes per call", func(t *testing.T) {
		t.Parallel()

		first, err := HashPassword("same input", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		second, err := HashPassword("same input", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}

		if first == second {
			t.Fatal("expected salted hashes to differ")
		}
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		t.Parallel()

		if err := VerifyPassword("not-a-phc-string", "anything"); err == nil {
			t.Fatal("expected an error for a malformed hash")
		}
	})
}
