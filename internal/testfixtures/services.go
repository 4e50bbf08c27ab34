package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/medilink/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// IdentityServiceDeps captures dependencies for constructing an identity
// service.
type IdentityServiceDeps struct {
	Identities   application.IdentityRepository
	HashPassword application.PasswordHasher
	IDGenerator  func() string
	Now          func() time.Time
	MFAIssuer    string
	Logger       *slog.Logger
}

// NewIdentityService builds an identity service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewIdentityService(deps IdentityServiceDeps) *application.IdentityService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	issuer := deps.MFAIssuer
	if issuer == "" {
		issuer = "MediLink"
	}
	return application.NewIdentityServiceWithLogger(
		deps.Identities,
		deps.HashPassword,
		idGen,
		now,
		issuer,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialReader
	PasswordVerify application.PasswordVerifier
	TokenSecret    []byte
	TokenTTL       time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	secret := deps.TokenSecret
	if len(secret) == 0 {
		secret = []byte("test-token-secret")
	}
	ttl := deps.TokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.PasswordVerify,
		secret,
		ttl,
		now,
		deps.Logger,
	)
}

// RecordServiceDeps captures dependencies for constructing a record service.
type RecordServiceDeps struct {
	Records     application.RecordRepository
	Alerts      application.AlertRepository
	Providers   application.ProviderDirectory
	Notifier    application.AlertNotifier
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRecordService builds a record service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewRecordService(deps RecordServiceDeps) *application.RecordService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewRecordServiceWithLogger(
		deps.Records,
		deps.Alerts,
		deps.Providers,
		deps.Notifier,
		idGen,
		now,
		deps.Logger,
	)
}

// AlertServiceDeps captures dependencies for constructing an alert service.
type AlertServiceDeps struct {
	Alerts application.AlertRepository
	Now    func() time.Time
	Logger *slog.Logger
}

// NewAlertService builds an alert service using the supplied dependencies.
func (f *ServiceFactory) NewAlertService(deps AlertServiceDeps) *application.AlertService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAlertServiceWithLogger(deps.Alerts, now, deps.Logger)
}
