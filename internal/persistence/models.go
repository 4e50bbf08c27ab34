package persistence

import "time"

// Identity represents a stored account, patient or provider, including its
// credential material.
type Identity struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Language     string
	Role         string
	PasswordHash string
	MFASecret    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MedicalRecord represents an ingested clinical document.
type MedicalRecord struct {
	ID             string
	PatientID      string
	RecordType     string
	PayloadRef     string
	Classification string
	UploadedAt     time.Time
}

// Alert represents a critical-case notification row addressed to one
// provider. ReadAt is nil while the alert is unread.
type Alert struct {
	ID         string
	ProviderID string
	PatientID  string
	Message    string
	IsRead     bool
	CreatedAt  time.Time
	ReadAt     *time.Time
}
