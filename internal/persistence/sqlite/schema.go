package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the ordered schema steps. The index into this slice plus
// one is the schema version recorded in PRAGMA user_version; append-only.
var migrations = []string{
	`CREATE TABLE users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL,
		language      TEXT NOT NULL DEFAULT 'en',
		role          TEXT NOT NULL CHECK (role IN ('patient', 'provider')),
		password_hash TEXT NOT NULL,
		mfa_secret    TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE medical_records (
		id             TEXT PRIMARY KEY,
		patient_id     TEXT NOT NULL REFERENCES users(id),
		record_type    TEXT NOT NULL CHECK (record_type IN ('pdf', 'image', 'text')),
		payload_ref    TEXT NOT NULL,
		classification TEXT NOT NULL CHECK (classification IN ('Critical', 'Moderate', 'Non-Critical')),
		uploaded_at    TEXT NOT NULL
	)`,
	`CREATE TABLE alerts (
		id          TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL REFERENCES users(id),
		patient_id  TEXT NOT NULL,
		message     TEXT NOT NULL,
		is_read     INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		read_at     TEXT
	)`,
	`CREATE INDEX idx_alerts_provider_unread ON alerts (provider_id, is_read, created_at)`,
	`CREATE INDEX idx_records_patient ON medical_records (patient_id, uploaded_at)`,
}

// Migrate brings the database schema up to the current version. Already
// applied steps are skipped, so calling it on every startup is safe.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	var version int
	if err := pool.DB().QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version < 0 || version > len(migrations) {
		return fmt.Errorf("unknown schema version %d", version)
	}

	for next := version; next < len(migrations); next++ {
		step := migrations[next]
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(step); err != nil {
				return fmt.Errorf("migration %d failed: %w", next+1, err)
			}
			// PRAGMA does not accept bound parameters.
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", next+1)); err != nil {
				return fmt.Errorf("failed to record schema version %d: %w", next+1, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
