package http

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/medilink/internal/application"
)

type reportService interface {
	PatientReport(ctx context.Context, patientID, assessment string) ([]byte, error)
}

// ReportHandler serves rendered patient report documents.
type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

// Get renders the PDF report for a patient. A patient may only fetch its
// own report; providers may fetch any.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}

	patientID, ok := PatientIDFromContext(r.Context())
	if !ok || patientID == "" {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
		return
	}

	logger := h.log(r.Context(), "Get", "patient_id", patientID, "requested_by", principal.IdentityID)

	if !principal.IsProvider() && principal.IdentityID != patientID {
		logger.ErrorContext(r.Context(), "report access rejected", "error_kind", application.ErrorKind(application.ErrForbidden))
		h.responder.handleServiceError(r.Context(), w, application.ErrForbidden)
		return
	}

	assessment := strings.TrimSpace(r.URL.Query().Get("assessment"))

	report, err := h.service.PatientReport(r.Context(), patientID, assessment)
	if err != nil {
		logger.ErrorContext(r.Context(), "report generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "report rendered", "bytes", len(report))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": reportFilename(patientID),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(report)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		logger.ErrorContext(r.Context(), "failed to write report body", "error", err)
	}
}

// reportFilename derives the attachment filename from the patient ID. The ID
// arrives percent-decoded from the request path, so anything outside a
// conservative character set is replaced before it reaches a header.
func reportFilename(patientID string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, patientID)
	return "patient-report-" + cleaned + ".pdf"
}
