package application

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestGenerateMFAKey(t *testing.T) {
	t.Parallel()

	secret, uri, err := GenerateMFAKey("MediLink", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateMFAKey returned error: %v", err)
	}
	if secret == "" {
		t.Fatal("expected a non-empty secret")
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI %q", uri)
	}
	if !strings.Contains(uri, "MediLink") {
		t.Fatalf("expected issuer in URI, got %q", uri)
	}

	other, _, err := GenerateMFAKey("", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateMFAKey returned error: %v", err)
	}
	if other == secret {
		t.Fatal("expected a fresh secret per enrollment")
	}
}

func TestVerifyMFACode(t *testing.T) {
	t.Parallel()

	secret, _, err := GenerateMFAKey("MediLink", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateMFAKey returned error: %v", err)
	}

	issued := time.Date(2026, time.March, 1, 10, 0, 15, 0, time.UTC)
	code, err := totp.GenerateCodeCustom(secret, issued, totpOpts)
	if err != nil {
		t.Fatalf("failed to derive code: %v", err)
	}

	t.Run("accepts the current code", func(t *testing.T) {
		t.Parallel()
		if !VerifyMFACode(secret, code, issued) {
			t.Fatal("expected the current code to verify")
		}
	})

	t.Run("tolerates one step of clock drift", func(t *testing.T) {
		t.Parallel()
		if !VerifyMFACode(secret, code, issued.Add(30*time.Second)) {
			t.Fatal("expected the previous step to verify")
		}
	})

	t.Run("rejects an expired code", func(t *testing.T) {
		t.Parallel()
		if VerifyMFACode(secret, code, issued.Add(5*time.Minute)) {
			t.Fatal("expected an expired code to fail")
		}
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		t.Parallel()
		if VerifyMFACode("", code, issued) {
			t.Fatal("expected empty secret to fail")
		}
		if VerifyMFACode(secret, "", issued) {
			t.Fatal("expected empty code to fail")
		}
		if VerifyMFACode(secret, "000000", issued) {
			t.Fatal("expected a wrong code to fail")
		}
	})
}
