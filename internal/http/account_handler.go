package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/example/medilink/internal/application"
)

type identityService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.Identity, error)
	EnrollMFA(ctx context.Context, identityID string) (application.EnrollMFAResult, error)
	VerifyMFA(ctx context.Context, identityID, code string) (bool, error)
}

// AccountHandler serves registration and MFA enrollment endpoints.
type AccountHandler struct {
	service   identityService
	responder responder
	logger    *slog.Logger
}

func NewAccountHandler(service identityService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

// Register creates a new patient or provider account.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode register request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register", "username", strings.TrimSpace(strings.ToLower(req.Username)))

	identity, err := h.service.Register(r.Context(), application.RegisterParams{
		Username: req.Username,
		Password: req.Password,
		Role:     application.Role(strings.TrimSpace(strings.ToLower(req.Role))),
		Email:    req.Email,
		FullName: req.FullName,
		Language: req.Language,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("identity_id", identity.ID).InfoContext(r.Context(), "identity registered", "role", string(identity.Role))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, registerResponse{User: toIdentityDTO(identity)})
}

// SetupMFA generates a fresh TOTP secret for the authenticated identity and
// returns it with a provisioning URI and a QR code for authenticator apps.
func (h *AccountHandler) SetupMFA(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}

	logger := h.log(r.Context(), "SetupMFA", "identity_id", principal.IdentityID)

	result, err := h.service.EnrollMFA(r.Context(), principal.IdentityID)
	if err != nil {
		logger.ErrorContext(r.Context(), "mfa enrollment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := mfaSetupResponse{
		Secret:          result.Secret,
		ProvisioningURI: result.ProvisioningURI,
	}
	if png, err := qrcode.Encode(result.ProvisioningURI, qrcode.Medium, 256); err != nil {
		// The secret and URI are still usable without the image.
		logger.WarnContext(r.Context(), "failed to render provisioning qr code", "error", err)
	} else {
		response.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	logger.InfoContext(r.Context(), "mfa secret issued")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

// VerifyMFA checks a TOTP code against the authenticated identity's secret.
func (h *AccountHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}

	var req mfaVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "VerifyMFA", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode verify request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "VerifyMFA", "identity_id", principal.IdentityID)

	verified, err := h.service.VerifyMFA(r.Context(), principal.IdentityID, strings.TrimSpace(req.Code))
	if err != nil {
		logger.ErrorContext(r.Context(), "mfa verification failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "mfa code checked", "verified", verified)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, mfaVerifyResponse{Verified: verified})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Language string `json:"language"`
}

type registerResponse struct {
	User identityDTO `json:"user"`
}

type mfaSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code,omitempty"`
}

type mfaVerifyRequest struct {
	Code string `json:"code"`
}

type mfaVerifyResponse struct {
	Verified bool `json:"verified"`
}

type identityDTO struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Language    string `json:"language"`
	Role        string `json:"role"`
	MFAEnrolled bool   `json:"mfa_enrolled"`
	CreatedAt   string `json:"created_at"`
}

func toIdentityDTO(identity application.Identity) identityDTO {
	return identityDTO{
		ID:          identity.ID,
		Username:    identity.Username,
		Email:       identity.Email,
		FullName:    identity.FullName,
		Language:    identity.Language,
		Role:        string(identity.Role),
		MFAEnrolled: identity.MFAEnrolled,
		CreatedAt:   identity.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
