package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AlertService exposes the unread-alert state machine to providers: the
// pull-based unread query and the one-way read transition.
type AlertService struct {
	alerts AlertRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewAlertService constructs an AlertService with the provided dependencies.
func NewAlertService(alerts AlertRepository, now func() time.Time) *AlertService {
	return NewAlertServiceWithLogger(alerts, now, nil)
}

// NewAlertServiceWithLogger constructs an AlertService with a specified
// logger.
func NewAlertServiceWithLogger(alerts AlertRepository, now func() time.Time, logger *slog.Logger) *AlertService {
	if now == nil {
		now = time.Now
	}
	return &AlertService{alerts: alerts, now: now, logger: defaultLogger(logger)}
}

func (s *AlertService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AlertService", operation, attrs...)
}

// ListUnread returns the principal's unread alerts ordered by creation time
// ascending. Only providers may read alerts, and only their own.
func (s *AlertService) ListUnread(ctx context.Context, principal Principal) ([]Alert, error) {
	if s == nil {
		return nil, fmt.Errorf("AlertService is nil")
	}
	if s.alerts == nil {
		return nil, fmt.Errorf("alert repository not configured")
	}

	logger := s.loggerWith(ctx, "ListUnread", "principal_id", principal.IdentityID)

	if !principal.IsProvider() {
		logger.ErrorContext(ctx, "unread query rejected", "error", ErrForbidden, "error_kind", ErrorKind(ErrForbidden))
		return nil, ErrForbidden
	}

	alerts, err := s.alerts.ListUnreadAlerts(ctx, principal.IdentityID)
	if err != nil {
		logger.ErrorContext(ctx, "unread query failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	logger.InfoContext(ctx, "unread alerts listed", "count", len(alerts))
	return alerts, nil
}

// MarkRead transitions an alert from unread to read. The transition is one
// way and idempotent; marking an already-read alert is a no-op. A provider
// may only mark its own alerts.
func (s *AlertService) MarkRead(ctx context.Context, principal Principal, alertID string) error {
	if s == nil {
		return fmt.Errorf("AlertService is nil")
	}
	if s.alerts == nil {
		return fmt.Errorf("alert repository not configured")
	}

	logger := s.loggerWith(ctx, "MarkRead", "principal_id", principal.IdentityID, "alert_id", alertID)

	if !principal.IsProvider() {
		logger.ErrorContext(ctx, "read transition rejected", "error", ErrForbidden, "error_kind", ErrorKind(ErrForbidden))
		return ErrForbidden
	}

	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		logger.ErrorContext(ctx, "read transition failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if alert.ProviderID != principal.IdentityID {
		logger.ErrorContext(ctx, "read transition rejected", "error", ErrNotOwner, "error_kind", ErrorKind(ErrNotOwner))
		return ErrNotOwner
	}
	if alert.IsRead {
		return nil
	}

	if err := s.alerts.MarkAlertRead(ctx, alertID, s.now().UTC()); err != nil {
		logger.ErrorContext(ctx, "read transition failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "alert marked read")
	return nil
}
