package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/medilink/internal/application"
	"github.com/example/medilink/internal/config"
	httptransport "github.com/example/medilink/internal/http"
	"github.com/example/medilink/internal/persistence"
	"github.com/example/medilink/internal/persistence/sqlite"
	"github.com/example/medilink/internal/realtime"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	identityRepo := sqlite.NewIdentityRepository(pool)
	recordRepo := sqlite.NewRecordRepository(pool)
	alertRepo := sqlite.NewAlertRepository(pool)

	identityAdapter := newIdentityRepositoryAdapter(identityRepo)
	recordAdapter := newRecordRepositoryAdapter(recordRepo)
	alertAdapter := newAlertRepositoryAdapter(alertRepo)

	registry := realtime.NewRegistry(logger)

	identityService := application.NewIdentityServiceWithLogger(identityAdapter, nil, idGenerator, now, cfg.MFAIssuer, logger)
	authService := application.NewAuthServiceWithLogger(identityAdapter, nil, []byte(cfg.TokenSecret), cfg.TokenTTL, now, logger)
	recordService := application.NewRecordServiceWithLogger(recordAdapter, alertAdapter, identityAdapter, registry, idGenerator, now, logger)
	alertService := application.NewAlertServiceWithLogger(alertAdapter, now, logger)
	reportService := application.NewReportServiceWithLogger(identityAdapter, recordAdapter, now, logger)

	graphqlHandler, err := httptransport.NewGraphQLHandler(logger)
	if err != nil {
		logger.Error("failed to build graphql schema", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Accounts:  httptransport.NewAccountHandler(identityService, logger),
		Records:   httptransport.NewRecordHandler(recordService, logger),
		Alerts:    httptransport.NewAlertHandler(alertService, logger),
		Reports:   httptransport.NewReportHandler(reportService, logger),
		GraphQL:   graphqlHandler,
		WebSocket: realtime.NewHandler(registry, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("medilink API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// isPublicPath reports whether the path is reachable without a session token.
func isPublicPath(path string) bool {
	switch {
	case strings.EqualFold(path, "/api/login"),
		strings.EqualFold(path, "/api/register"),
		strings.EqualFold(path, "/graphql"):
		return true
	}
	return false
}

type identityRepositoryAdapter struct {
	repo persistence.IdentityRepository
}

func newIdentityRepositoryAdapter(repo persistence.IdentityRepository) *identityRepositoryAdapter {
	return &identityRepositoryAdapter{repo: repo}
}

func (a *identityRepositoryAdapter) CreateIdentity(ctx context.Context, identity application.Identity, passwordHash string) (application.Identity, error) {
	if err := a.repo.CreateIdentity(ctx, toPersistenceIdentity(identity, passwordHash, "")); err != nil {
		return application.Identity{}, mapIdentityError(err)
	}
	stored, err := a.repo.GetIdentity(ctx, identity.ID)
	if err != nil {
		return application.Identity{}, mapIdentityError(err)
	}
	return toApplicationIdentity(stored), nil
}

func (a *identityRepositoryAdapter) GetIdentity(ctx context.Context, id string) (application.Identity, error) {
	stored, err := a.repo.GetIdentity(ctx, id)
	if err != nil {
		return application.Identity{}, mapIdentityError(err)
	}
	return toApplicationIdentity(stored), nil
}

func (a *identityRepositoryAdapter) GetCredentials(ctx context.Context, id string) (application.IdentityCredentials, error) {
	stored, err := a.repo.GetIdentity(ctx, id)
	if err != nil {
		return application.IdentityCredentials{}, mapIdentityError(err)
	}
	return toApplicationCredentials(stored), nil
}

func (a *identityRepositoryAdapter) GetCredentialsByUsername(ctx context.Context, username string) (application.IdentityCredentials, error) {
	stored, err := a.repo.GetIdentityByUsername(ctx, username)
	if err != nil {
		return application.IdentityCredentials{}, mapIdentityError(err)
	}
	return toApplicationCredentials(stored), nil
}

func (a *identityRepositoryAdapter) SetMFASecret(ctx context.Context, identityID, secret string, updatedAt time.Time) error {
	if err := a.repo.SetMFASecret(ctx, identityID, secret, updatedAt); err != nil {
		return mapIdentityError(err)
	}
	return nil
}

func (a *identityRepositoryAdapter) ListProviders(ctx context.Context) ([]application.Identity, error) {
	models, err := a.repo.ListIdentitiesByRole(ctx, string(application.RoleProvider))
	if err != nil {
		return nil, mapIdentityError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	providers := make([]application.Identity, 0, len(models))
	for _, model := range models {
		providers = append(providers, toApplicationIdentity(model))
	}
	return providers, nil
}

type recordRepositoryAdapter struct {
	repo persistence.RecordRepository
}

func newRecordRepositoryAdapter(repo persistence.RecordRepository) *recordRepositoryAdapter {
	return &recordRepositoryAdapter{repo: repo}
}

func (a *recordRepositoryAdapter) CreateRecord(ctx context.Context, record application.MedicalRecord) (application.MedicalRecord, error) {
	if err := a.repo.CreateRecord(ctx, toPersistenceRecord(record)); err != nil {
		return application.MedicalRecord{}, mapStorageError(err)
	}
	stored, err := a.repo.GetRecord(ctx, record.ID)
	if err != nil {
		return application.MedicalRecord{}, mapStorageError(err)
	}
	return toApplicationRecord(stored), nil
}

func (a *recordRepositoryAdapter) ListRecordsForPatient(ctx context.Context, patientID string) ([]application.MedicalRecord, error) {
	models, err := a.repo.ListRecordsForPatient(ctx, patientID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	records := make([]application.MedicalRecord, 0, len(models))
	for _, model := range models {
		records = append(records, toApplicationRecord(model))
	}
	return records, nil
}

type alertRepositoryAdapter struct {
	repo persistence.AlertRepository
}

func newAlertRepositoryAdapter(repo persistence.AlertRepository) *alertRepositoryAdapter {
	return &alertRepositoryAdapter{repo: repo}
}

func (a *alertRepositoryAdapter) InsertAlert(ctx context.Context, alert application.Alert) (application.Alert, error) {
	if err := a.repo.InsertAlert(ctx, toPersistenceAlert(alert)); err != nil {
		return application.Alert{}, mapStorageError(err)
	}
	stored, err := a.repo.GetAlert(ctx, alert.ID)
	if err != nil {
		return application.Alert{}, mapStorageError(err)
	}
	return toApplicationAlert(stored), nil
}

func (a *alertRepositoryAdapter) GetAlert(ctx context.Context, id string) (application.Alert, error) {
	stored, err := a.repo.GetAlert(ctx, id)
	if err != nil {
		return application.Alert{}, mapStorageError(err)
	}
	return toApplicationAlert(stored), nil
}

func (a *alertRepositoryAdapter) MarkAlertRead(ctx context.Context, id string, readAt time.Time) error {
	if err := a.repo.MarkAlertRead(ctx, id, readAt); err != nil {
		return mapStorageError(err)
	}
	return nil
}

func (a *alertRepositoryAdapter) ListUnreadAlerts(ctx context.Context, providerID string) ([]application.Alert, error) {
	models, err := a.repo.ListUnreadAlerts(ctx, providerID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	alerts := make([]application.Alert, 0, len(models))
	for _, model := range models {
		alerts = append(alerts, toApplicationAlert(model))
	}
	return alerts, nil
}

func mapIdentityError(err error) error {
	if errors.Is(err, persistence.ErrDuplicate) {
		return application.ErrDuplicateIdentity
	}
	return mapStorageError(err)
}

func mapStorageError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return application.ErrNotFound
	}
	return err
}

func toApplicationIdentity(model persistence.Identity) application.Identity {
	return application.Identity{
		ID:          model.ID,
		Username:    model.Username,
		Email:       model.Email,
		FullName:    model.FullName,
		Language:    model.Language,
		Role:        application.Role(model.Role),
		MFAEnrolled: model.MFASecret != "",
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationCredentials(model persistence.Identity) application.IdentityCredentials {
	return application.IdentityCredentials{
		Identity:     toApplicationIdentity(model),
		PasswordHash: model.PasswordHash,
		MFASecret:    model.MFASecret,
	}
}

func toPersistenceIdentity(identity application.Identity, passwordHash, mfaSecret string) persistence.Identity {
	return persistence.Identity{
		ID:           identity.ID,
		Username:     identity.Username,
		Email:        identity.Email,
		FullName:     identity.FullName,
		Language:     identity.Language,
		Role:         string(identity.Role),
		PasswordHash: passwordHash,
		MFASecret:    mfaSecret,
		CreatedAt:    identity.CreatedAt,
		UpdatedAt:    identity.UpdatedAt,
	}
}

func toApplicationRecord(model persistence.MedicalRecord) application.MedicalRecord {
	return application.MedicalRecord{
		ID:             model.ID,
		PatientID:      model.PatientID,
		RecordType:     application.RecordType(model.RecordType),
		PayloadRef:     model.PayloadRef,
		Classification: application.Classification(model.Classification),
		UploadedAt:     model.UploadedAt,
	}
}

func toPersistenceRecord(record application.MedicalRecord) persistence.MedicalRecord {
	return persistence.MedicalRecord{
		ID:             record.ID,
		PatientID:      record.PatientID,
		RecordType:     string(record.RecordType),
		PayloadRef:     record.PayloadRef,
		Classification: string(record.Classification),
		UploadedAt:     record.UploadedAt,
	}
}

func toApplicationAlert(model persistence.Alert) application.Alert {
	return application.Alert{
		ID:         model.ID,
		ProviderID: model.ProviderID,
		PatientID:  model.PatientID,
		Message:    model.Message,
		IsRead:     model.IsRead,
		CreatedAt:  model.CreatedAt,
	}
}

func toPersistenceAlert(alert application.Alert) persistence.Alert {
	return persistence.Alert{
		ID:         alert.ID,
		ProviderID: alert.ProviderID,
		PatientID:  alert.PatientID,
		Message:    alert.Message,
		IsRead:     alert.IsRead,
		CreatedAt:  alert.CreatedAt,
	}
}
