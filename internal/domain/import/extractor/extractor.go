// Package extractor turns uploaded bank statements (CSV, PDF, Excel) into an
// ordered list of normalized transactions.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/sniffer"
)

// FileType is the source format tag kept with an upload.
type FileType string

const (
	FileTypeCSV   FileType = "csv"
	FileTypePDF   FileType = "pdf"
	FileTypeExcel FileType = "excel"
)

// Status distinguishes a finished extraction from a request for a password.
type Status string

const (
	StatusExtracted        Status = "extracted"
	StatusPasswordRequired Status = "password_required"
)

// AllowedExtensions lists the accepted upload extensions.
var AllowedExtensions = []string{".csv", ".pdf", ".xlsx", ".xls"}

// Input is one upload attempt.
type Input struct {
	Filename string
	Data     []byte
	Password string
}

// Transaction is a normalized statement row. Amount is signed: negative for
// money out, positive for money in.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        string
	Payment     normalizer.PaymentDetails
	SourceRow   int
}

// Result is the outcome of a successful Extract call.
type Result struct {
	Status       Status
	FileType     FileType
	Transactions []Transaction
	Headers      []string
	Fingerprint  string
	SkippedRows  int
}

// Extractor parses statements. PDFs go through a TextExtractor so the
// poppler dependency stays at the edge.
type Extractor struct {
	pdf    TextExtractor
	logger *slog.Logger
	loc    *time.Location
}

// New creates an Extractor. A nil TextExtractor disables PDF support.
func New(pdf TextExtractor, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{pdf: pdf, logger: logger, loc: time.UTC}
}

// FileTypeFor maps a filename extension to a FileType.
func FileTypeFor(filename string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".pdf":
		return FileTypePDF, nil
	case ".xlsx", ".xls":
		return FileTypeExcel, nil
	}
	return "", fmt.Errorf("%w: %q (allowed: %s)", common.ErrUnsupportedFileType,
		filepath.Ext(filename), strings.Join(AllowedExtensions, ", "))
}

// Extract parses in.Data according to the filename extension. An encrypted PDF
// without a password yields StatusPasswordRequired and no error; a wrong
// password yields common.ErrWrongPassword; anything unreadable yields
// common.ErrParseFailure.
func (e *Extractor) Extract(ctx context.Context, in Input) (*Result, error) {
	l := e.logger.With(slog.String("method", "Extract"), slog.String("filename", in.Filename))

	fileType, err := FileTypeFor(in.Filename)
	if err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: %w", common.ErrParseFailure, sniffer.ErrEmptyFile)
	}

	var (
		grid    [][]string
		lines   []string
		isPDF   = fileType == FileTypePDF
		gridErr error
	)

	switch {
	case fileType == FileTypeCSV:
		grid, gridErr = readCSV(in.Data)
	case isPDF:
		text, err := e.pdfText(ctx, in)
		if errors.Is(err, ErrEncrypted) {
			l.InfoContext(ctx, "pdf is encrypted, asking for password")
			return &Result{Status: StatusPasswordRequired, FileType: fileType}, nil
		}
		if err != nil {
			return nil, err
		}
		lines = splitPDFLines(text)
		grid = alignedGrid(lines)
	case strings.EqualFold(filepath.Ext(in.Filename), ".xls"):
		grid, gridErr = readXLS(in.Data)
	default:
		grid, gridErr = readXLSX(in.Data)
	}
	if gridErr != nil {
		l.WarnContext(ctx, "failed to read file", slog.Any("error", gridErr))
		return nil, fmt.Errorf("%w: %w", common.ErrParseFailure, gridErr)
	}

	txns, headers, skipped, err := e.fromGrid(grid)
	if err != nil && isPDF {
		// Statements without a recognizable table header: fall back to
		// date-led line matching.
		txns, skipped = e.fromPDFLines(lines)
		headers = nil
		if len(txns) > 0 {
			err = nil
		}
	}
	if err != nil {
		l.WarnContext(ctx, "no transactions extracted", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", common.ErrParseFailure, err)
	}
	if len(txns) == 0 {
		return nil, fmt.Errorf("%w: no valid transactions found in file", common.ErrParseFailure)
	}

	res := &Result{
		Status:       StatusExtracted,
		FileType:     fileType,
		Transactions: txns,
		Headers:      headers,
		SkippedRows:  skipped,
	}
	if len(headers) > 0 {
		res.Fingerprint = sniffer.Fingerprint(headers)
	}

	l.InfoContext(ctx, "statement extracted",
		slog.String("file_type", string(fileType)),
		slog.Int("transactions", len(txns)),
		slog.Int("skipped", skipped))
	return res, nil
}

func (e *Extractor) pdfText(ctx context.Context, in Input) (string, error) {
	if e.pdf == nil {
		return "", fmt.Errorf("%w: pdf support is not configured", common.ErrParseFailure)
	}
	text, err := e.pdf.ExtractText(ctx, in.Data, in.Password)
	switch {
	case errors.Is(err, ErrEncrypted) && in.Password != "":
		return "", common.ErrWrongPassword
	case errors.Is(err, ErrEncrypted), errors.Is(err, common.ErrWrongPassword):
		return "", err
	case err != nil:
		return "", fmt.Errorf("%w: %w", common.ErrParseFailure, err)
	}
	return text, nil
}
