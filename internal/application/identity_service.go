package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// IdentityRepository captures the persistence interactions for identities and
// their credentials.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, identity Identity, passwordHash string) (Identity, error)
	GetIdentity(ctx context.Context, id string) (Identity, error)
	GetCredentials(ctx context.Context, id string) (IdentityCredentials, error)
	GetCredentialsByUsername(ctx context.Context, username string) (IdentityCredentials, error)
	SetMFASecret(ctx context.Context, identityID, secret string, updatedAt time.Time) error
	ListProviders(ctx context.Context) ([]Identity, error)
}

// PasswordHasher derives a storable one-way hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// IdentityService handles registration and MFA enrollment for patient and
// provider accounts.
type IdentityService struct {
	identities   IdentityRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	mfaIssuer    string
	logger       *slog.Logger
}

// NewIdentityService constructs an IdentityService with the provided
// dependencies.
func NewIdentityService(identities IdentityRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, mfaIssuer string) *IdentityService {
	return NewIdentityServiceWithLogger(identities, hashPassword, idGenerator, now, mfaIssuer, nil)
}

// NewIdentityServiceWithLogger constructs an IdentityService with a specified
// logger.
func NewIdentityServiceWithLogger(identities IdentityRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, mfaIssuer string, logger *slog.Logger) *IdentityService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return HashPassword(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if strings.TrimSpace(mfaIssuer) == "" {
		mfaIssuer = "MediLink"
	}
	return &IdentityService{
		identities:   identities,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		mfaIssuer:    mfaIssuer,
		logger:       defaultLogger(logger),
	}
}

func (s *IdentityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "IdentityService", operation, attrs...)
}

// Register validates input, hashes the password, and persists a new identity.
// A collision on username or email surfaces as ErrDuplicateIdentity.
func (s *IdentityService) Register(ctx context.Context, params RegisterParams) (identity Identity, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}
	if s.identities == nil {
		err = fmt.Errorf("identity repository not configured")
		return
	}

	normalized := normalizeRegisterParams(params)
	logger := s.loggerWith(ctx, "Register",
		"username", normalized.Username,
		"role", string(normalized.Role),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("identity_id", identity.ID).InfoContext(ctx, "identity registered")
	}()

	if vErr := validateRegisterParams(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	var passwordHash string
	passwordHash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	now := s.now().UTC()
	identity = Identity{
		ID:        s.idGenerator(),
		Username:  normalized.Username,
		Email:     normalized.Email,
		FullName:  normalized.FullName,
		Language:  normalized.Language,
		Role:      normalized.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	identity, err = s.identities.CreateIdentity(ctx, identity, passwordHash)
	return
}

// EnrollMFA generates a fresh shared secret for the identity and stores it.
// The secret is active immediately: subsequent logins require a one-time code.
func (s *IdentityService) EnrollMFA(ctx context.Context, identityID string) (result EnrollMFAResult, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}
	if s.identities == nil {
		err = fmt.Errorf("identity repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EnrollMFA", "identity_id", identityID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "mfa enrollment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "mfa secret generated")
	}()

	var identity Identity
	identity, err = s.identities.GetIdentity(ctx, identityID)
	if err != nil {
		return
	}

	var secret, uri string
	secret, uri, err = GenerateMFAKey(s.mfaIssuer, identity.Email)
	if err != nil {
		return
	}

	if err = s.identities.SetMFASecret(ctx, identity.ID, secret, s.now().UTC()); err != nil {
		return
	}

	result = EnrollMFAResult{Secret: secret, ProvisioningURI: uri}
	return
}

// VerifyMFA checks a one-time code against the identity's stored secret. It is
// used both to confirm enrollment and by clients probing device setup.
func (s *IdentityService) VerifyMFA(ctx context.Context, identityID, code string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("IdentityService is nil")
	}
	if s.identities == nil {
		return false, fmt.Errorf("identity repository not configured")
	}

	logger := s.loggerWith(ctx, "VerifyMFA", "identity_id", identityID)

	creds, err := s.identities.GetCredentials(ctx, identityID)
	if err != nil {
		logger.ErrorContext(ctx, "mfa verification failed", "error", err, "error_kind", ErrorKind(err))
		return false, err
	}
	if creds.MFASecret == "" {
		logger.ErrorContext(ctx, "mfa verification failed", "error", ErrNotFound, "error_kind", ErrorKind(ErrNotFound))
		return false, ErrNotFound
	}

	ok := VerifyMFACode(creds.MFASecret, code, s.now())
	logger.InfoContext(ctx, "mfa code verified", "valid", ok)
	return ok, nil
}

// GetIdentity returns the identity for the given id.
func (s *IdentityService) GetIdentity(ctx context.Context, id string) (Identity, error) {
	if s == nil {
		return Identity{}, fmt.Errorf("IdentityService is nil")
	}
	if s.identities == nil {
		return Identity{}, fmt.Errorf("identity repository not configured")
	}
	return s.identities.GetIdentity(ctx, id)
}

func normalizeRegisterParams(params RegisterParams) RegisterParams {
	params.Username = strings.TrimSpace(strings.ToLower(params.Username))
	params.Email = strings.TrimSpace(strings.ToLower(params.Email))
	params.FullName = strings.TrimSpace(params.FullName)
	params.Language = strings.TrimSpace(params.Language)
	if params.Language == "" {
		params.Language = "en"
	}
	return params
}

func validateRegisterParams(params RegisterParams) *ValidationError {
	vErr := &ValidationError{}
	if params.Username == "" {
		vErr.add("username", "username is required")
	}
	if params.Password == "" {
		vErr.add("password", "password is required")
	}
	if params.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(params.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if !params.Role.Valid() {
		vErr.add("role", "role must be patient or provider")
	}
	return vErr
}
