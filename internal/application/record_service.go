package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RecordRepository persists ingested medical records.
type RecordRepository interface {
	CreateRecord(ctx context.Context, record MedicalRecord) (MedicalRecord, error)
}

// AlertRepository persists alert rows. Insert is append-only.
type AlertRepository interface {
	InsertAlert(ctx context.Context, alert Alert) (Alert, error)
	GetAlert(ctx context.Context, id string) (Alert, error)
	MarkAlertRead(ctx context.Context, id string, readAt time.Time) error
	ListUnreadAlerts(ctx context.Context, providerID string) ([]Alert, error)
}

// ProviderDirectory resolves the set of providers eligible for alerting.
type ProviderDirectory interface {
	ListProviders(ctx context.Context) ([]Identity, error)
}

// AlertNotifier pushes an alert to the live connections of one provider.
// Delivery is best effort; the alert is already durable when Deliver runs.
type AlertNotifier interface {
	Deliver(ctx context.Context, providerID string, alert Alert) error
}

// criticalAlertMessage is the notification text attached to every
// critical-case alert.
const criticalAlertMessage = "Critical patient case detected"

// RecordService ingests medical records and fans out critical-case alerts.
type RecordService struct {
	records     RecordRepository
	alerts      AlertRepository
	providers   ProviderDirectory
	notifier    AlertNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRecordService constructs a RecordService with the provided dependencies.
func NewRecordService(records RecordRepository, alerts AlertRepository, providers ProviderDirectory, notifier AlertNotifier, idGenerator func() string, now func() time.Time) *RecordService {
	return NewRecordServiceWithLogger(records, alerts, providers, notifier, idGenerator, now, nil)
}

// NewRecordServiceWithLogger constructs a RecordService with a specified
// logger.
func NewRecordServiceWithLogger(records RecordRepository, alerts AlertRepository, providers ProviderDirectory, notifier AlertNotifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RecordService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RecordService{
		records:     records,
		alerts:      alerts,
		providers:   providers,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RecordService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RecordService", operation, attrs...)
}

// Ingest persists the record unconditionally. When the classification is
// Critical it creates one alert per eligible provider and hands each to the
// notifier, strictly insert-then-deliver per provider: an alert is durable
// before any delivery attempt, and a failed delivery never rolls back the
// insert or blocks the remaining providers.
func (s *RecordService) Ingest(ctx context.Context, params IngestRecordParams) (record MedicalRecord, err error) {
	if s == nil {
		err = fmt.Errorf("RecordService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("record repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Ingest",
		"patient_id", params.Principal.IdentityID,
		"record_type", string(params.RecordType),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "record ingestion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", record.ID).InfoContext(ctx, "record ingested", "classification", string(record.Classification))
	}()

	if params.Principal.IdentityID == "" {
		err = ErrUnauthenticated
		return
	}

	normalized := params
	normalized.PayloadRef = strings.TrimSpace(normalized.PayloadRef)
	if normalized.Classification == "" {
		normalized.Classification = ClassificationNonCritical
	}
	if vErr := validateIngestParams(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	record = MedicalRecord{
		ID:             s.idGenerator(),
		PatientID:      normalized.Principal.IdentityID,
		RecordType:     normalized.RecordType,
		PayloadRef:     normalized.PayloadRef,
		Classification: normalized.Classification,
		UploadedAt:     s.now().UTC(),
	}

	record, err = s.records.CreateRecord(ctx, record)
	if err != nil {
		return
	}

	if record.Classification == ClassificationCritical {
		s.fanOutAlerts(ctx, logger, record)
	}

	return
}

// fanOutAlerts creates and delivers one alert per eligible provider. The
// current policy alerts every provider; substituting a targeted-assignment
// lookup changes only the ProviderDirectory, not the insert-then-deliver
// contract. Failures are logged per provider and never abort the loop.
func (s *RecordService) fanOutAlerts(ctx context.Context, logger *slog.Logger, record MedicalRecord) {
	if s.alerts == nil || s.providers == nil {
		logger.ErrorContext(ctx, "alert fan-out skipped", "error", fmt.Errorf("alert dependencies not configured"))
		return
	}

	providers, err := s.providers.ListProviders(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve eligible providers", "error", err, "error_kind", ErrorKind(err))
		return
	}

	for _, provider := range providers {
		alert := Alert{
			ID:         s.idGenerator(),
			ProviderID: provider.ID,
			PatientID:  record.PatientID,
			Message:    criticalAlertMessage,
			CreatedAt:  s.now().UTC(),
		}

		inserted, err := s.alerts.InsertAlert(ctx, alert)
		if err != nil {
			logger.ErrorContext(ctx, "failed to insert alert", "provider_id", provider.ID, "error", err, "error_kind", ErrorKind(err))
			continue
		}

		if s.notifier == nil {
			continue
		}
		if err := s.notifier.Deliver(ctx, provider.ID, inserted); err != nil {
			// The alert row stands; the provider observes it via the
			// unread-query path on reconnect.
			logger.ErrorContext(ctx, "alert delivery failed", "provider_id", provider.ID, "alert_id", inserted.ID, "error", err, "error_kind", "delivery_failure")
			continue
		}
		logger.InfoContext(ctx, "alert delivered", "provider_id", provider.ID, "alert_id", inserted.ID)
	}
}

func validateIngestParams(params IngestRecordParams) *ValidationError {
	vErr := &ValidationError{}
	if !params.RecordType.Valid() {
		vErr.add("record_type", "record type must be pdf, image, or text")
	}
	if params.PayloadRef == "" {
		vErr.add("payload_ref", "payload reference is required")
	}
	if !params.Classification.Valid() {
		vErr.add("classification", "classification must be Critical, Moderate, or Non-Critical")
	}
	return vErr
}
