package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/medilink/internal/application"
)

type recordService interface {
	Ingest(ctx context.Context, params application.IngestRecordParams) (application.MedicalRecord, error)
}

// RecordHandler serves medical record ingestion.
type RecordHandler struct {
	service   recordService
	responder responder
	logger    *slog.Logger
}

func NewRecordHandler(service recordService, logger *slog.Logger) *RecordHandler {
	base := defaultLogger(logger)
	return &RecordHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RecordHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RecordHandler", operation, attrs...)
}

// Create ingests a medical record for the authenticated identity. A record
// classified Critical triggers the alert fan-out before the response is
// written, so a 201 means every alert row is already durable.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}

	var req recordCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode record request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "patient_id", principal.IdentityID)

	record, err := h.service.Ingest(r.Context(), application.IngestRecordParams{
		Principal:      principal,
		RecordType:     application.RecordType(req.RecordType),
		PayloadRef:     req.PayloadRef,
		Classification: application.Classification(req.Classification),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "record ingestion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("record_id", record.ID).InfoContext(r.Context(), "record ingested", "classification", string(record.Classification))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRecordDTO(record))
}

type recordCreateRequest struct {
	RecordType     string `json:"record_type"`
	PayloadRef     string `json:"payload_ref"`
	Classification string `json:"classification"`
}

type recordDTO struct {
	ID             string `json:"id"`
	PatientID      string `json:"patient_id"`
	RecordType     string `json:"record_type"`
	PayloadRef     string `json:"payload_ref"`
	Classification string `json:"classification"`
	UploadedAt     string `json:"uploaded_at"`
}

func toRecordDTO(record application.MedicalRecord) recordDTO {
	return recordDTO{
		ID:             record.ID,
		PatientID:      record.PatientID,
		RecordType:     string(record.RecordType),
		PayloadRef:     record.PayloadRef,
		Classification: string(record.Classification),
		UploadedAt:     record.UploadedAt.UTC().Format(time.RFC3339Nano),
	}
}
