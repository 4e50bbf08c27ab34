package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialReader exposes the credential lookups required by the auth
// service.
type CredentialReader interface {
	GetCredentialsByUsername(ctx context.Context, username string) (IdentityCredentials, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService verifies credentials, enforces the MFA challenge, and issues
// and validates signed bearer tokens.
type AuthService struct {
	credentials    CredentialReader
	verifyPassword PasswordVerifier
	tokenSecret    []byte
	tokenTTL       time.Duration
	now            func() time.Time
	replay         *replayGuard
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialReader, verify PasswordVerifier, tokenSecret []byte, tokenTTL time.Duration, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(credentials, verify, tokenSecret, tokenTTL, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialReader, verify PasswordVerifier, tokenSecret []byte, tokenTTL time.Duration, now func() time.Time, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		verifyPassword: verify,
		tokenSecret:    tokenSecret,
		tokenTTL:       tokenTTL,
		now:            now,
		replay:         newReplayGuard(0, 0, now),
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// sessionClaims is the JWT payload carried by issued bearer tokens.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login validates a username/password pair and, for MFA-enrolled identities,
// a one-time code, then issues a signed bearer token. Unknown usernames and
// wrong passwords produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential reader not configured")
		return
	}
	if len(s.tokenSecret) == 0 {
		err = fmt.Errorf("token secret not configured")
		return
	}

	username := strings.TrimSpace(strings.ToLower(params.Username))
	logger := s.loggerWith(ctx, "Login", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("identity_id", result.Identity.ID).InfoContext(ctx, "login succeeded")
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds IdentityCredentials
	creds, err = s.credentials.GetCredentialsByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	if creds.MFASecret != "" {
		if strings.TrimSpace(params.MFACode) == "" {
			err = ErrMFARequired
			return
		}
		if !VerifyMFACode(creds.MFASecret, params.MFACode, s.now()) {
			err = ErrInvalidMFACode
			return
		}
		// A code accepted once is burned for the rest of its window.
		if !s.replay.MarkUsed(creds.Identity.ID, params.MFACode) {
			err = ErrInvalidMFACode
			return
		}
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := sessionClaims{
		Role: string(creds.Identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creds.Identity.ID,
			Issuer:    "medilink",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	var token string
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
	if err != nil {
		return
	}

	result = LoginResult{Token: token, ExpiresAt: expiresAt, Identity: creds.Identity}
	return
}

// ValidateToken verifies the signature and expiry of a bearer token and
// returns the principal it encodes. Missing, malformed, and expired tokens
// all surface as ErrUnauthenticated.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if len(s.tokenSecret) == 0 {
		return Principal{}, fmt.Errorf("token secret not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Principal{}, ErrUnauthenticated
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(trimmed, claims, func(*jwt.Token) (any, error) {
		return s.tokenSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		s.loggerWith(ctx, "ValidateToken").ErrorContext(ctx, "token validation failed", "error", err, "error_kind", ErrorKind(ErrUnauthenticated))
		return Principal{}, ErrUnauthenticated
	}

	role := Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return Principal{}, ErrUnauthenticated
	}

	return Principal{IdentityID: claims.Subject, Role: role}, nil
}
