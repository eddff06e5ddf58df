package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/pkg/export"
)

// ExportFormat names a downloadable history format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var historyHeaders = []string{"번호", "날짜", "제목", "출판사", "감상", "쪽수", "누적 쪽수"}

// ExportResult is a rendered history file ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportService renders a student's in-memory history as a file.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the default exporters.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		exporter := export.NewPDFExporter("")
		exporter.Widths = []float64{1, 2, 3, 2, 5, 1, 1.5}
		pdf = exporter
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat validates a user supplied format.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// History renders the history, newest first, in the requested format.
func (s *ExportService) History(student models.Student, history []models.BookEntry, format ExportFormat) (*ExportResult, error) {
	table := historyTable(history)

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
		contentType = "text/csv; charset=utf-8"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table, fmt.Sprintf("Reading log %s %s", student.Number, student.Name))
		contentType = "application/pdf"
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		s.logger.Error("history export failed", zap.String("number", student.Number), zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}

	return &ExportResult{
		Filename:    s.buildFilename(student, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func historyTable(history []models.BookEntry) export.Table {
	rows := make([][]string, 0, len(history))
	for _, entry := range history {
		rows = append(rows, []string{
			strconv.Itoa(entry.No),
			entry.Date,
			entry.Title,
			entry.Publisher,
			entry.Impression,
			strconv.Itoa(entry.Pages),
			strconv.Itoa(entry.CumulativePages),
		})
	}
	return export.Table{Headers: historyHeaders, Rows: rows}
}

func (s *ExportService) buildFilename(student models.Student, format ExportFormat) string {
	number := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' {
			return r
		}
		return '_'
	}, student.Number)
	if number == "" {
		number = "student"
	}
	return fmt.Sprintf("reading-log-%s-%s.%s", number, s.now().Format("20060102"), format)
}
