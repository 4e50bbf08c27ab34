package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// RecordHistory lists the stored records of one patient, oldest first.
type RecordHistory interface {
	ListRecordsForPatient(ctx context.Context, patientID string) ([]MedicalRecord, error)
}

// ReportService renders patient report documents. The narrative assessment
// text is supplied by the caller; this service only does formatting.
type ReportService struct {
	identities IdentityRepository
	records    RecordHistory
	now        func() time.Time
	logger     *slog.Logger
}

// NewReportService constructs a ReportService with the provided dependencies.
func NewReportService(identities IdentityRepository, records RecordHistory, now func() time.Time) *ReportService {
	return NewReportServiceWithLogger(identities, records, now, nil)
}

// NewReportServiceWithLogger constructs a ReportService with a specified
// logger.
func NewReportServiceWithLogger(identities IdentityRepository, records RecordHistory, now func() time.Time, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{identities: identities, records: records, now: now, logger: defaultLogger(logger)}
}

// PatientReport renders a PDF report for the given patient carrying the
// supplied assessment text, the patient's record history, and a verification
// QR code. Returns ErrNotFound when the patient does not exist.
func (s *ReportService) PatientReport(ctx context.Context, patientID, assessment string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("ReportService is nil")
	}
	if s.identities == nil {
		return nil, fmt.Errorf("identity repository not configured")
	}
	if s.records == nil {
		return nil, fmt.Errorf("record repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ReportService", "PatientReport", "patient_id", patientID)

	patient, err := s.identities.GetIdentity(ctx, patientID)
	if err != nil {
		logger.ErrorContext(ctx, "report generation failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	history, err := s.records.ListRecordsForPatient(ctx, patientID)
	if err != nil {
		logger.ErrorContext(ctx, "report generation failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	now := s.now().UTC()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "MediLink Patient Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	name := patient.FullName
	if name == "" {
		name = "N/A"
	}
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Patient Name: %s", name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Patient ID: %s", patient.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Date: %s", now.Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Assessment:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, assessment, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Record History:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if len(history) == 0 {
		pdf.CellFormat(0, 6, "No records on file.", "", 1, "L", false, 0, "")
	}
	for _, record := range history {
		line := fmt.Sprintf("%s  %s (%s)", record.UploadedAt.UTC().Format("2006-01-02"), record.RecordType, record.Classification)
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Verification QR code: deterministic content so a scanner can match the
	// document to the patient and issue time.
	qrContent := fmt.Sprintf("PatientID:%s;Date:%s", patient.ID, now.Format(time.RFC3339))
	qrPNG, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
	if err != nil {
		logger.ErrorContext(ctx, "report generation failed", "error", err)
		return nil, err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verification-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("verification-qr", 80, pdf.GetY(), 40, 40, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + 46)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Digital Signature: ______________________", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		logger.ErrorContext(ctx, "report generation failed", "error", err)
		return nil, err
	}

	logger.InfoContext(ctx, "patient report rendered", "bytes", buf.Len())
	return buf.Bytes(), nil
}
