package application

import "time"

// Role identifies what an identity is allowed to do in the system.
type Role string

const (
	// RolePatient identifies an identity that originates medical records.
	RolePatient Role = "patient"
	// RoleProvider identifies a clinician identity authorized to receive
	// critical-case alerts.
	RoleProvider Role = "provider"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleProvider
}

// RecordType identifies the payload format of an uploaded medical record.
type RecordType string

const (
	RecordTypePDF   RecordType = "pdf"
	RecordTypeImage RecordType = "image"
	RecordTypeText  RecordType = "text"
)

// Valid reports whether the record type is one of the known values.
func (t RecordType) Valid() bool {
	return t == RecordTypePDF || t == RecordTypeImage || t == RecordTypeText
}

// Classification is the severity tier assigned to a medical record.
type Classification string

const (
	ClassificationCritical    Classification = "Critical"
	ClassificationModerate    Classification = "Moderate"
	ClassificationNonCritical Classification = "Non-Critical"
)

// Valid reports whether the classification is one of the known tiers.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationCritical, ClassificationModerate, ClassificationNonCritical:
		return true
	}
	return false
}

// Identity represents a registered patient or provider account.
type Identity struct {
	ID          string
	Username    string
	Email       string
	FullName    string
	Language    string
	Role        Role
	MFAEnrolled bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdentityCredentials models the authentication attributes stored for an
// identity. MFASecret is empty when the identity has not enrolled.
type IdentityCredentials struct {
	Identity     Identity
	PasswordHash string
	MFASecret    string
}

// Principal represents the authenticated identity invoking an operation.
// It is reconstructed from a signed token on every request.
type Principal struct {
	IdentityID string
	Role       Role
}

// IsProvider reports whether the principal may receive and read alerts.
func (p Principal) IsProvider() bool {
	return p.Role == RoleProvider
}

// MedicalRecord represents an ingested record. Records are immutable after
// creation; there is no update or delete path.
type MedicalRecord struct {
	ID             string
	PatientID      string
	RecordType     RecordType
	PayloadRef     string
	Classification Classification
	UploadedAt     time.Time
}

// Alert represents a critical-case notification addressed to one provider.
// The only permitted mutation is the one-way read transition.
type Alert struct {
	ID         string
	ProviderID string
	PatientID  string
	Message    string
	IsRead     bool
	CreatedAt  time.Time
}

// RegisterParams captures the data required to register an identity.
type RegisterParams struct {
	Username string
	Password string
	Role     Role
	Email    string
	FullName string
	Language string
}

// EnrollMFAResult carries the generated shared secret and the otpauth
// provisioning URI for authenticator apps.
type EnrollMFAResult struct {
	Secret          string
	ProvisioningURI string
}

// LoginParams captures the data required to authenticate an identity.
// MFACode is mandatory for identities with an enrolled secret.
type LoginParams struct {
	Username string
	Password string
	MFACode  string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}

// IngestRecordParams captures the data accepted by the record ingestion
// operation. Classification defaults to Non-Critical when empty.
type IngestRecordParams struct {
	Principal      Principal
	RecordType     RecordType
	PayloadRef     string
	Classification Classification
}
