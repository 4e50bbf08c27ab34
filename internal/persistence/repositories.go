package persistence

import (
	"context"
	"time"
)

// IdentityRepository exposes storage operations for accounts.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, identity Identity) error
	GetIdentity(ctx context.Context, id string) (Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (Identity, error)
	SetMFASecret(ctx context.Context, id, secret string, updatedAt time.Time) error
	ListIdentitiesByRole(ctx context.Context, role string) ([]Identity, error)
}

// RecordRepository stores ingested medical records.
type RecordRepository interface {
	CreateRecord(ctx context.Context, record MedicalRecord) error
	GetRecord(ctx context.Context, id string) (MedicalRecord, error)
	ListRecordsForPatient(ctx context.Context, patientID string) ([]MedicalRecord, error)
}

// AlertRepository stores alert rows. Inserts are append-only; the only
// mutation is the one-way unread-to-read transition.
type AlertRepository interface {
	InsertAlert(ctx context.Context, alert Alert) error
	GetAlert(ctx context.Context, id string) (Alert, error)
	MarkAlertRead(ctx context.Context, id string, readAt time.Time) error
	ListUnreadAlerts(ctx context.Context, providerID string) ([]Alert, error)
}
