package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/medilink/internal/application"
	"github.com/example/medilink/internal/persistence"
)

var (
	identityCounter uint64
	recordCounter   uint64
	alertCounter    uint64
)

var referenceTime = time.Date(2026, time.March, 1, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Identity fixtures ---------------------------

// IdentityFixture represents a deterministic identity record that can be
// materialised for application or persistence tests.
type IdentityFixture struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Language     string
	Role         application.Role
	PasswordHash string
	MFASecret    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityOption configures the generated identity fixture.
type IdentityOption func(*IdentityFixture)

// NewIdentityFixture returns a deterministic patient fixture with optional
// overrides.
func NewIdentityFixture(opts ...IdentityOption) IdentityFixture {
	idx := atomic.AddUint64(&identityCounter, 1)
	id := fmt.Sprintf("identity-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := IdentityFixture{
		ID:           id,
		Username:     id,
		Email:        fmt.Sprintf("%s@example.com", id),
		FullName:     fmt.Sprintf("Identity %03d", idx),
		Language:     "en",
		Role:         application.RolePatient,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AsProvider switches the fixture to the provider role.
func AsProvider() IdentityOption {
	return func(fixture *IdentityFixture) {
		fixture.Role = application.RoleProvider
	}
}

// WithIdentityID overrides the fixture identifier and username together so the
// record stays internally consistent.
func WithIdentityID(id string) IdentityOption {
	return func(fixture *IdentityFixture) {
		fixture.ID = id
		fixture.Username = id
		fixture.Email = fmt.Sprintf("%s@example.com", id)
	}
}

// WithMFASecret marks the fixture as enrolled in MFA.
func WithMFASecret(secret string) IdentityOption {
	return func(fixture *IdentityFixture) {
		fixture.MFASecret = secret
	}
}

// WithPasswordHash overrides the stored password hash.
func WithPasswordHash(hash string) IdentityOption {
	return func(fixture *IdentityFixture) {
		fixture.PasswordHash = hash
	}
}

// ToPersistence converts the fixture into the persistence model.
func (f IdentityFixture) ToPersistence() persistence.Identity {
	return persistence.Identity{
		ID:           f.ID,
		Username:     f.Username,
		Email:        f.Email,
		FullName:     f.FullName,
		Language:     f.Language,
		Role:         string(f.Role),
		PasswordHash: f.PasswordHash,
		MFASecret:    f.MFASecret,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ToApplication converts the fixture into the application model.
func (f IdentityFixture) ToApplication() application.Identity {
	return application.Identity{
		ID:          f.ID,
		Username:    f.Username,
		Email:       f.Email,
		FullName:    f.FullName,
		Language:    f.Language,
		Role:        f.Role,
		MFAEnrolled: f.MFASecret != "",
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------- Medical record fixtures -------------------------

// RecordFixture represents a deterministic medical record.
type RecordFixture struct {
	ID             string
	PatientID      string
	RecordType     application.RecordType
	PayloadRef     string
	Classification application.Classification
	UploadedAt     time.Time
}

// RecordOption configures the generated record fixture.
type RecordOption func(*RecordFixture)

// NewRecordFixture returns a deterministic non-critical record fixture.
func NewRecordFixture(patientID string, opts ...RecordOption) RecordFixture {
	idx := atomic.AddUint64(&recordCounter, 1)
	fixture := RecordFixture{
		ID:             fmt.Sprintf("record-%03d", idx),
		PatientID:      patientID,
		RecordType:     application.RecordTypePDF,
		PayloadRef:     fmt.Sprintf("blob://records/%03d", idx),
		Classification: application.ClassificationNonCritical,
		UploadedAt:     referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AsCritical switches the fixture classification to Critical.
func AsCritical() RecordOption {
	return func(fixture *RecordFixture) {
		fixture.Classification = application.ClassificationCritical
	}
}

// WithRecordType overrides the record payload format.
func WithRecordType(recordType application.RecordType) RecordOption {
	return func(fixture *RecordFixture) {
		fixture.RecordType = recordType
	}
}

// ToPersistence converts the fixture into the persistence model.
func (f RecordFixture) ToPersistence() persistence.MedicalRecord {
	return persistence.MedicalRecord{
		ID:             f.ID,
		PatientID:      f.PatientID,
		RecordType:     string(f.RecordType),
		PayloadRef:     f.PayloadRef,
		Classification: string(f.Classification),
		UploadedAt:     f.UploadedAt,
	}
}

// ToApplication converts the fixture into the application model.
func (f RecordFixture) ToApplication() application.MedicalRecord {
	return application.MedicalRecord{
		ID:             f.ID,
		PatientID:      f.PatientID,
		RecordType:     f.RecordType,
		PayloadRef:     f.PayloadRef,
		Classification: f.Classification,
		UploadedAt:     f.UploadedAt,
	}
}

// ---------------------------- Alert fixtures -----------------------------

// AlertFixture represents a deterministic unread alert.
type AlertFixture struct {
	ID         string
	ProviderID string
	PatientID  string
	Message    string
	IsRead     bool
	CreatedAt  time.Time
	ReadAt     *time.Time
}

// AlertOption configures the generated alert fixture.
type AlertOption func(*AlertFixture)

// NewAlertFixture returns a deterministic unread alert fixture for the given
// provider and patient.
func NewAlertFixture(providerID, patientID string, opts ...AlertOption) AlertFixture {
	idx := atomic.AddUint64(&alertCounter, 1)
	fixture := AlertFixture{
		ID:         fmt.Sprintf("alert-%03d", idx),
		ProviderID: providerID,
		PatientID:  patientID,
		Message:    "Critical patient case detected",
		CreatedAt:  referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AsRead marks the fixture as read at the given instant.
func AsRead(readAt time.Time) AlertOption {
	return func(fixture *AlertFixture) {
		fixture.IsRead = true
		fixture.ReadAt = &readAt
	}
}

// ToPersistence converts the fixture into the persistence model.
func (f AlertFixture) ToPersistence() persistence.Alert {
	return persistence.Alert{
		ID:         f.ID,
		ProviderID: f.ProviderID,
		PatientID:  f.PatientID,
		Message:    f.Message,
		IsRead:     f.IsRead,
		CreatedAt:  f.CreatedAt,
		ReadAt:     f.ReadAt,
	}
}

// ToApplication converts the fixture into the application model.
func (f AlertFixture) ToApplication() application.Alert {
	return application.Alert{
		ID:         f.ID,
		ProviderID: f.ProviderID,
		PatientID:  f.PatientID,
		Message:    f.Message,
		IsRead:     f.IsRead,
		CreatedAt:  f.CreatedAt,
	}
}
