package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/medilink/internal/persistence"
)

// RecordRepository implements persistence.RecordRepository using SQLite
type RecordRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRecordRepository creates a new SQLite medical record repository
func NewRecordRepository(pool *ConnectionPool) *RecordRepository {
	return &RecordRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const recordColumns = "id, patient_id, record_type, payload_ref, classification, uploaded_at"

// CreateRecord inserts a new medical record into the database
func (r *RecordRepository) CreateRecord(ctx context.Context, record persistence.MedicalRecord) error {
	if record.ID == "" || record.PatientID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO medical_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		record.ID,
		record.PatientID,
		record.RecordType,
		record.PayloadRef,
		record.Classification,
		record.UploadedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetRecord retrieves a medical record by ID from the database
func (r *RecordRepository) GetRecord(ctx context.Context, id string) (persistence.MedicalRecord, error) {
	if id == "" {
		return persistence.MedicalRecord{}, persistence.ErrNotFound
	}

	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE id = ?`

	record, err := scanRecord(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.MedicalRecord{}, persistence.ErrNotFound
		}
		return persistence.MedicalRecord{}, r.mapper.MapError(err)
	}

	return record, nil
}

// ListRecordsForPatient returns a patient's records ordered by upload time
// then ID
func (r *RecordRepository) ListRecordsForPatient(ctx context.Context, patientID string) ([]persistence.MedicalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM medical_records
		WHERE patient_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, patientID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var records []persistence.MedicalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return records, nil
}

func scanRecord(scanner rowScanner) (persistence.MedicalRecord, error) {
	var record persistence.MedicalRecord
	var uploadedAtStr string

	err := scanner.Scan(
		&record.ID,
		&record.PatientID,
		&record.RecordType,
		&record.PayloadRef,
		&record.Classification,
		&uploadedAtStr,
	)
	if err != nil {
		return persistence.MedicalRecord{}, err
	}

	if record.UploadedAt, err = time.Parse(time.RFC3339, uploadedAtStr); err != nil {
		return persistence.MedicalRecord{}, fmt.Errorf("failed to parse uploaded_at: %w", err)
	}

	return record, nil
}
