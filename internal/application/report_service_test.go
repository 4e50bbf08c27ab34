package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type recordHistoryStub struct {
	records   []MedicalRecord
	err       error
	requested []string
}

func (s *recordHistoryStub) ListRecordsForPatient(ctx context.Context, patientID string) ([]MedicalRecord, error) {
	s.requested = append(s.requested, patientID)
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func TestReportService_PatientReport(t *testing.T) {
	t.Parallel()

	now := func() time.Time {
		return time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	}

	t.Run("renders a pdf document for an existing patient", func(t *testing.T) {
		t.Parallel()

		repo := &identityRepositoryStub{identities: map[string]Identity{
			"patient-1": {ID: "patient-1", FullName: "Alice Example", Role: RolePatient},
		}}
		service := NewReportService(repo, &recordHistoryStub{}, now)

		report, err := service.PatientReport(context.Background(), "patient-1", "Stable, follow up in two weeks.")
		if err != nil {
			t.Fatalf("PatientReport returned error: %v", err)
		}
		if !bytes.HasPrefix(report, []byte("%PDF")) {
			t.Fatalf("expected a PDF document, got %q", report[:min(len(report), 8)])
		}
	})

	t.Run("includes the patient's record history", func(t *testing.T) {
		t.Parallel()

		repo := &identityRepositoryStub{identities: map[string]Identity{
			"patient-1": {ID: "patient-1", FullName: "Alice Example", Role: RolePatient},
		}}
		history := &recordHistoryStub{records: []MedicalRecord{
			{ID: "record-1", PatientID: "patient-1", RecordType: RecordTypePDF, Classification: ClassificationCritical, UploadedAt: now().Add(-48 * time.Hour)},
			{ID: "record-2", PatientID: "patient-1", RecordType: RecordTypeText, Classification: ClassificationModerate, UploadedAt: now().Add(-time.Hour)},
		}}
		service := NewReportService(repo, history, now)

		report, err := service.PatientReport(context.Background(), "patient-1", "Stable.")
		if err != nil {
			t.Fatalf("PatientReport returned error: %v", err)
		}
		if len(report) == 0 {
			t.Fatal("expected a non-empty document")
		}
		if len(history.requested) != 1 || history.requested[0] != "patient-1" {
			t.Fatalf("expected one history lookup for patient-1, got %v", history.requested)
		}
	})

	t.Run("propagates a record history failure", func(t *testing.T) {
		t.Parallel()

		repo := &identityRepositoryStub{identities: map[string]Identity{
			"patient-1": {ID: "patient-1", Role: RolePatient},
		}}
		historyErr := fmt.Errorf("storage unavailable")
		service := NewReportService(repo, &recordHistoryStub{err: historyErr}, now)

		if _, err := service.PatientReport(context.Background(), "patient-1", ""); !errors.Is(err, historyErr) {
			t.Fatalf("expected history error, got %v", err)
		}
	})

	t.Run("returns not found for an unknown patient", func(t *testing.T) {
		t.Parallel()

		service := NewReportService(&identityRepositoryStub{}, &recordHistoryStub{}, now)

		if _, err := service.PatientReport(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("handles an empty assessment", func(t *testing.T) {
		t.Parallel()

		repo := &identityRepositoryStub{identities: map[string]Identity{
			"patient-1": {ID: "patient-1", Role: RolePatient},
		}}
		service := NewReportService(repo, &recordHistoryStub{}, now)

		report, err := service.PatientReport(context.Background(), "patient-1", "")
		if err != nil {
			t.Fatalf("PatientReport returned error: %v", err)
		}
		if len(report) == 0 {
			t.Fatal("expected a non-empty document")
		}
	})
}
