package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/medilink/internal/persistence"
)

// IdentityRepository implements persistence.IdentityRepository using SQLite
type IdentityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewIdentityRepository creates a new SQLite identity repository
func NewIdentityRepository(pool *ConnectionPool) *IdentityRepository {
	return &IdentityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const identityColumns = "id, username, email, full_name, language, role, password_hash, mfa_secret, created_at, updated_at"

// CreateIdentity inserts a new account into the database
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity persistence.Identity) error {
	if identity.ID == "" || identity.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO users (` + identityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		identity.ID,
		normalizeKey(identity.Username),
		normalizeKey(identity.Email),
		identity.FullName,
		identity.Language,
		identity.Role,
		identity.PasswordHash,
		identity.MFASecret,
		identity.CreatedAt.UTC().Format(time.RFC3339),
		identity.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetIdentity retrieves an account by ID from the database
func (r *IdentityRepository) GetIdentity(ctx context.Context, id string) (persistence.Identity, error) {
	if id == "" {
		return persistence.Identity{}, persistence.ErrNotFound
	}

	query := `SELECT ` + identityColumns + ` FROM users WHERE id = ?`
	return r.scanIdentity(r.helper.QueryRow(ctx, query, id))
}

// GetIdentityByUsername retrieves an account by its login name
func (r *IdentityRepository) GetIdentityByUsername(ctx context.Context, username string) (persistence.Identity, error) {
	if username == "" {
		return persistence.Identity{}, persistence.ErrNotFound
	}

	query := `SELECT ` + identityColumns + ` FROM users WHERE username = ?`
	return r.scanIdentity(r.helper.QueryRow(ctx, query, normalizeKey(username)))
}

// SetMFASecret stores the TOTP secret for an account
func (r *IdentityRepository) SetMFASecret(ctx context.Context, id, secret string, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `UPDATE users SET mfa_secret = ?, updated_at = ? WHERE id = ?`

	result, err := r.helper.Exec(ctx, query, secret, updatedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// ListIdentitiesByRole returns all accounts with the given role ordered by
// creation timestamp then ID
func (r *IdentityRepository) ListIdentitiesByRole(ctx context.Context, role string) ([]persistence.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM users
		WHERE role = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, role)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var identities []persistence.Identity
	for rows.Next() {
		identity, err := r.scanIdentityRow(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return identities, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *IdentityRepository) scanIdentity(row *sql.Row) (persistence.Identity, error) {
	identity, err := r.scanIdentityFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Identity{}, persistence.ErrNotFound
		}
		return persistence.Identity{}, err
	}
	return identity, nil
}

func (r *IdentityRepository) scanIdentityRow(rows *sql.Rows) (persistence.Identity, error) {
	return r.scanIdentityFrom(rows)
}

func (r *IdentityRepository) scanIdentityFrom(scanner rowScanner) (persistence.Identity, error) {
	var identity persistence.Identity
	var createdAtStr, updatedAtStr string

	err := scanner.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.FullName,
		&identity.Language,
		&identity.Role,
		&identity.PasswordHash,
		&identity.MFASecret,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Identity{}, err
		}
		return persistence.Identity{}, r.mapper.MapError(err)
	}

	if identity.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Identity{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if identity.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Identity{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return identity, nil
}

// normalizeKey normalizes usernames and email addresses for consistent
// storage and lookup
func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
