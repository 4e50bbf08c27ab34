package http

import (
	"context"

	"github.com/example/medilink/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	alertIDContextKey   contextKey = "alert_id"
	patientIDContextKey contextKey = "patient_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithAlertID injects the alert identifier resolved from the request path.
func ContextWithAlertID(ctx context.Context, alertID string) context.Context {
	return context.WithValue(ctx, alertIDContextKey, alertID)
}

// AlertIDFromContext extracts an alert identifier previously associated with the context.
func AlertIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(alertIDContextKey).(string)
	return id, ok
}

// ContextWithPatientID injects the patient identifier resolved from the request path.
func ContextWithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, patientIDContextKey, patientID)
}

// PatientIDFromContext extracts a patient identifier previously associated with the context.
func PatientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(patientIDContextKey).(string)
	return id, ok
}
