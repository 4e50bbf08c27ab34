package persistence

import "errors"

// Sentinel errors returned by repository implementations. Callers translate
// these into domain errors at the adapter boundary.
var (
	ErrNotFound            = errors.New("persistence: record not found")
	ErrDuplicate           = errors.New("persistence: duplicate record")
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
