package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/medilink/internal/persistence"
)

// AlertRepository implements persistence.AlertRepository using SQLite
type AlertRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAlertRepository creates a new SQLite alert repository
func NewAlertRepository(pool *ConnectionPool) *AlertRepository {
	return &AlertRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const alertColumns = "id, provider_id, patient_id, message, is_read, created_at, read_at"

// InsertAlert appends a new alert row
func (r *AlertRepository) InsertAlert(ctx context.Context, alert persistence.Alert) error {
	if alert.ID == "" || alert.ProviderID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO alerts (id, provider_id, patient_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		alert.ID,
		alert.ProviderID,
		alert.PatientID,
		alert.Message,
		alert.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetAlert retrieves an alert by ID
func (r *AlertRepository) GetAlert(ctx context.Context, id string) (persistence.Alert, error) {
	if id == "" {
		return persistence.Alert{}, persistence.ErrNotFound
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`

	alert, err := scanAlert(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Alert{}, persistence.ErrNotFound
		}
		return persistence.Alert{}, r.mapper.MapError(err)
	}

	return alert, nil
}

// MarkAlertRead transitions an alert to read. The transition is one way:
// an already-read alert keeps its original read_at timestamp.
func (r *AlertRepository) MarkAlertRead(ctx context.Context, id string, readAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `UPDATE alerts SET is_read = 1, read_at = ? WHERE id = ? AND is_read = 0`

	result, err := r.helper.Exec(ctx, query, readAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing row from an already-read one.
		var exists int
		if err := r.helper.QueryRow(ctx, "SELECT COUNT(*) FROM alerts WHERE id = ?", id).Scan(&exists); err != nil {
			return r.mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}
	}

	return nil
}

// ListUnreadAlerts returns a provider's unread alerts ordered by creation
// timestamp then ID
func (r *AlertRepository) ListUnreadAlerts(ctx context.Context, providerID string) ([]persistence.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE provider_id = ? AND is_read = 0
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, providerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var alerts []persistence.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return alerts, nil
}

func scanAlert(scanner rowScanner) (persistence.Alert, error) {
	var alert persistence.Alert
	var isRead int
	var createdAtStr string
	var readAtStr sql.NullString

	err := scanner.Scan(
		&alert.ID,
		&alert.ProviderID,
		&alert.PatientID,
		&alert.Message,
		&isRead,
		&createdAtStr,
		&readAtStr,
	)
	if err != nil {
		return persistence.Alert{}, err
	}

	alert.IsRead = isRead != 0

	if alert.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Alert{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if readAtStr.Valid {
		readAt, err := time.Parse(time.RFC3339, readAtStr.String)
		if err != nil {
			return persistence.Alert{}, fmt.Errorf("failed to parse read_at: %w", err)
		}
		alert.ReadAt = &readAt
	}

	return alert, nil
}
