package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/medilink/internal/application"
)

type alertService interface {
	ListUnread(ctx context.Context, principal application.Principal) ([]application.Alert, error)
	MarkRead(ctx context.Context, principal application.Principal, alertID string) error
}

// AlertHandler serves the provider-facing alert endpoints.
type AlertHandler struct {
	service   alertService
	responder responder
	logger    *slog.Logger
}

func NewAlertHandler(service alertService, logger *slog.Logger) *AlertHandler {
	base := defaultLogger(logger)
	return &AlertHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AlertHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AlertHandler", operation, attrs...)
}

// ListUnread returns the caller's unread alerts, oldest first.
func (h *AlertHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}

	logger := h.log(r.Context(), "ListUnread", "provider_id", principal.IdentityID)

	alerts, err := h.service.ListUnread(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list alerts", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]alertDTO, 0, len(alerts))
	for _, alert := range alerts {
		dtos = append(dtos, toAlertDTO(alert))
	}

	logger.InfoContext(r.Context(), "alerts listed", "count", len(dtos))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, alertListResponse{Alerts: dtos})
}

// MarkRead marks one of the caller's alerts as read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}

	alertID, ok := AlertIDFromContext(r.Context())
	if !ok || alertID == "" {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
		return
	}

	logger := h.log(r.Context(), "MarkRead", "provider_id", principal.IdentityID, "alert_id", alertID)

	if err := h.service.MarkRead(r.Context(), principal, alertID); err != nil {
		logger.ErrorContext(r.Context(), "failed to mark alert read", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "alert marked read")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type alertListResponse struct {
	Alerts []alertDTO `json:"alerts"`
}

type alertDTO struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func toAlertDTO(alert application.Alert) alertDTO {
	return alertDTO{
		ID:        alert.ID,
		PatientID: alert.PatientID,
		Message:   alert.Message,
		IsRead:    alert.IsRead,
		CreatedAt: alert.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
