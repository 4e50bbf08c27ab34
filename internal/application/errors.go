package application

import "errors"

var (
	// ErrInvalidCredentials is returned when a username/password pair does not
	// match a stored identity. It never distinguishes which part was wrong.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrMFARequired is returned when an MFA-enrolled identity attempts to log
	// in without supplying a one-time code.
	ErrMFARequired = errors.New("application: mfa code required")
	// ErrInvalidMFACode is returned when a supplied one-time code fails
	// verification against the stored secret.
	ErrInvalidMFACode = errors.New("application: invalid mfa code")
	// ErrDuplicateIdentity is returned when a registration collides with an
	// existing username or email.
	ErrDuplicateIdentity = errors.New("application: identity already exists")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnauthenticated is returned when a request carries no token or a
	// token that fails signature or expiry checks.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrForbidden is returned when an authenticated principal lacks the role
	// required for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrRoomAccessDenied is returned when a connection attempts to join an
	// alert room for an identity other than its own.
	ErrRoomAccessDenied = errors.New("application: room access denied")
	// ErrNotOwner is returned when a provider attempts to mutate an alert that
	// belongs to a different provider.
	ErrNotOwner = errors.New("application: not alert owner")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
