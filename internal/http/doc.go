// Package http provides HTTP handlers and middleware for the MediLink API.
//
// The router exposes the following endpoints:
//   - POST /api/register: creates a patient or provider account. Body:
//     {"username","password","role","email","full_name","language"}. Response:
//     {"user":{...}} with 201 Created.
//   - POST /api/login: authenticates a username/password pair and issues a
//     session token. Identities with an enrolled MFA secret must also supply
//     "mfa_code". The token is returned in the body, the `X-Session-Token`
//     header, and a `session_token` cookie.
//   - POST /api/mfa/setup: generates a fresh TOTP secret for the
//     authenticated identity. Response carries the secret, an otpauth
//     provisioning URI, and a QR code data URL.
//   - POST /api/mfa/verify: checks a TOTP code against the caller's secret.
//   - POST /api/medical-records: ingests a record; a Critical classification
//     fans alerts out to every provider before the 201 response.
//   - GET /api/alerts: lists the calling provider's unread alerts oldest
//     first. POST /api/alerts/{id}/read marks one of them read.
//   - GET /api/patient-report/{id}: renders the patient's PDF report.
//   - GET|POST /graphql: experimental query endpoint.
//   - GET /ws: websocket endpoint for live alert delivery; the client joins
//     its provider room with {"event":"joinProviderRoom","provider_id":...}.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
