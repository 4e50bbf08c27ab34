package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

var testTokenSecret = []byte("test-token-secret")

func equalityVerifier(hashedPassword, password string) error {
	if hashedPassword != password {
		return ErrInvalidCredentials
	}
	return nil
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	t.Run("issues a bearer token for valid credentials without MFA", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialReaderStub{
			credentials: IdentityCredentials{
				Identity:     Identity{ID: "identity-1", Username: "quinn", Role: RolePatient},
				PasswordHash: "secret",
			},
		}
		svc := NewAuthService(creds, equalityVerifier, testTokenSecret, time.Hour, func() time.Time { return now })

		result, err := svc.Login(context.Background(), LoginParams{Username: "Quinn", Password: "secret"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		if result.Token == "" {
			t.Fatal("expected a signed token")
		}
		if !result.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour out, got %v", result.ExpiresAt)
		}

		principal, err := svc.ValidateToken(context.Background(), result.Token)
		if err != nil {
			t.Fatalf("ValidateToken failed: %v", err)
		}
		if principal.IdentityID != "identity-1" || principal.Role != RolePatient {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("does not reveal whether username or password was wrong", func(t *testing.T) {
		t.Parallel()

		creds := &credentialReaderStub{err: ErrNotFound}
		svc := NewAuthService(creds, equalityVerifier, testTokenSecret, time.Hour, nil)

		_, unknownErr := svc.Login(context.Background(), LoginParams{Username: "ghost", Password: "pw"})
		if !errors.Is(unknownErr, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", unknownErr)
		}

		creds.err = nil
		creds.credentials = IdentityCredentials{Identity: Identity{ID: "id"}, PasswordHash: "right"}
		_, wrongErr := svc.Login(context.Background(), LoginParams{Username: "ghost", Password: "wrong"})
		if !errors.Is(wrongErr, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongErr)
		}
	})

	t.Run("requires a code for MFA-enrolled identities", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		secret, _, err := GenerateMFAKey("MediLink", "casey@example.com")
		if err != nil {
			t.Fatalf("GenerateMFAKey failed: %v", err)
		}
		creds := &credentialReaderStub{
			credentials: IdentityCredentials{
				Identity:     Identity{ID: "identity-2", Role: RoleProvider, MFAEnrolled: true},
				PasswordHash: "secret",
				MFASecret:    secret,
			},
		}
		svc := NewAuthService(creds, equalityVerifier, testTokenSecret, time.Hour, func() time.Time { return now })

		_, err = svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret"})
		if !errors.Is(err, ErrMFARequired) {
			t.Fatalf("expected ErrMFARequired, got %v", err)
		}

		_, err = svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret", MFACode: "000000"})
		if !errors.Is(err, ErrInvalidMFACode) {
			t.Fatalf("expected ErrInvalidMFACode, got %v", err)
		}

		code, err := totp.GenerateCode(secret, now)
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		result, err := svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret", MFACode: code})
		if err != nil {
			t.Fatalf("Login with valid code failed: %v", err)
		}
		if result.Token == "" {
			t.Fatal("expected a signed token")
		}
	})

	t.Run("rejects a replayed code inside its window", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		secret, _, err := GenerateMFAKey("MediLink", "casey@example.com")
		if err != nil {
			t.Fatalf("GenerateMFAKey failed: %v", err)
		}
		creds := &credentialReaderStub{
			credentials: IdentityCredentials{
				Identity:     Identity{ID: "identity-2", Role: RoleProvider},
				PasswordHash: "secret",
				MFASecret:    secret,
			},
		}
		svc := NewAuthService(creds, equalityVerifier, testTokenSecret, time.Hour, func() time.Time { return now })

		code, err := totp.GenerateCode(secret, now)
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if _, err := svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret", MFACode: code}); err != nil {
			t.Fatalf("first login failed: %v", err)
		}
		if _, err := svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret", MFACode: code}); !errors.Is(err, ErrInvalidMFACode) {
			t.Fatalf("expected ErrInvalidMFACode for replayed code, got %v", err)
		}
	})

	t.Run("rejects codes outside the drift window", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		secret, _, err := GenerateMFAKey("MediLink", "casey@example.com")
		if err != nil {
			t.Fatalf("GenerateMFAKey failed: %v", err)
		}
		creds := &credentialReaderStub{
			credentials: IdentityCredentials{
				Identity:     Identity{ID: "identity-2", Role: RoleProvider},
				PasswordHash: "secret",
				MFASecret:    secret,
			},
		}
		svc := NewAuthService(creds, equalityVerifier, testTokenSecret, time.Hour, func() time.Time { return now })

		stale, err := totp.GenerateCode(secret, now.Add(-2*30*time.Second))
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if _, err := svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret", MFACode: stale}); !errors.Is(err, ErrInvalidMFACode) {
			t.Fatalf("expected ErrInvalidMFACode for stale code, got %v", err)
		}

		drifted, err := totp.GenerateCode(secret, now.Add(-30*time.Second))
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if _, err := svc.Login(context.Background(), LoginParams{Username: "casey", Password: "secret", MFACode: drifted}); err != nil {
			t.Fatalf("expected one-step drift to verify, got %v", err)
		}
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialReaderStub{}, nil, testTokenSecret, time.Hour, nil)
		if _, err := svc.Login(context.Background(), LoginParams{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing and malformed tokens", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialReaderStub{}, nil, testTokenSecret, time.Hour, nil)

		if _, err := svc.ValidateToken(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
		}
		if _, err := svc.ValidateToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for malformed token, got %v", err)
		}
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		t.Parallel()

		issued := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		clock := issued
		creds := &credentialReaderStub{
			credentials: IdentityCredentials{Identity: Identity{ID: "identity-1", Role: RoleProvider}, PasswordHash: "pw"},
		}
		svc := NewAuthService(creds, equalityVerifier, testTokenSecret, time.Hour, func() time.Time { return clock })

		result, err := svc.Login(context.Background(), LoginParams{Username: "quinn", Password: "pw"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		clock = issued.Add(61 * time.Minute)
		if _, err := svc.ValidateToken(context.Background(), result.Token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for expired token, got %v", err)
		}
	})

	t.Run("rejects tokens signed with a different secret", func(t *testing.T) {
		t.Parallel()

		creds := &credentialReaderStub{
			credentials: IdentityCredentials{Identity: Identity{ID: "identity-1", Role: RoleProvider}, PasswordHash: "pw"},
		}
		issuer := NewAuthService(creds, equalityVerifier, []byte("other-secret"), time.Hour, nil)
		result, err := issuer.Login(context.Background(), LoginParams{Username: "quinn", Password: "pw"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		verifier := NewAuthService(creds, nil, testTokenSecret, time.Hour, nil)
		if _, err := verifier.ValidateToken(context.Background(), result.Token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for foreign signature, got %v", err)
		}
	})
}

type credentialReaderStub struct {
	credentials IdentityCredentials
	err         error
}

func (s *credentialReaderStub) GetCredentialsByUsername(ctx context.Context, username string) (IdentityCredentials, error) {
	if s.err != nil {
		return IdentityCredentials{}, s.err
	}
	return s.credentials, nil
}
