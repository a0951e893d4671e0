// Package sniffer provides automatic detection of statement layouts.
// It identifies delimiters, header rows and column roles for CSV text and for
// already tabulated sheets (Excel, PDF text), and fingerprints header sets.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// Common bank statement header keywords (multi-language)
var headerKeywords = []string{
	// Portuguese
	"data mov", "data mov.", "descrição", "descricao", "débito", "debito", "crédito", "credito",
	"data valor", "saldo", "categoria",
	// English
	"date", "description", "amount", "debit", "credit", "balance", "category", "merchant",
	"narration", "particulars", "withdrawal", "deposit", "details", "memo", "payee", "remarks",
	// Spanish
	"fecha", "descripción", "descripcion", "importe", "cargo", "abono",
}

var utf8BOM = []byte("\uFEFF")

const (
	maxHeaderScan   = 20
	minHeaderFields = 3
	maxSampleRows   = 5
)

// FileConfig holds the detected configuration for a delimited text file
type FileConfig struct {
	Delimiter   rune       // The field delimiter (';', ',', '\t', '|')
	SkipLines   int        // Number of metadata lines before headers
	Headers     []string   // Detected header names
	Fingerprint string     // SHA256 hash of normalized headers
	SampleRows  [][]string // First few data rows for preview
}

// ColumnSuggestions provides auto-detected column indices; -1 means absent.
type ColumnSuggestions struct {
	DateCol       int
	DescCol       int
	AmountCol     int // single signed amount column
	DebitCol      int
	CreditCol     int
	CategoryCol   int
	TypeCol       int // Dr/Cr indicator column
	BalanceCol    int
	IsDoubleEntry bool // True if separate debit/credit columns detected
}

// Usable reports whether the suggestions are enough to build transactions.
func (c *ColumnSuggestions) Usable() bool {
	if c.DateCol < 0 || c.DescCol < 0 {
		return false
	}
	return c.AmountCol >= 0 || c.DebitCol >= 0 || c.CreditCol >= 0
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
	ErrNoColumns        = errors.New("could not identify date, description and amount columns")
)

var (
	dateCell   = regexp.MustCompile(`^(\d{1,4}[-/.]\d{1,2}[-/.]\d{2,4}|\d{1,2}[ -][A-Za-z]{3,9}[ -]\d{2,4}|[A-Za-z]{3,9} \d{1,2}, \d{4})`)
	amountCell = regexp.MustCompile(`^[(\-+]?\s*[$€£₹]?\s*-?[\d.,]*\d[\d.,]*\)?\s*(?i:cr|dr)?\.?$`)
)

// DetectConfig analyzes a CSV/TSV file and returns its configuration
func DetectConfig(data []byte) (*FileConfig, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := splitLines(string(data))

	delimiter, skipLines, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(lines[skipLines]))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: generateFingerprint(headers),
		SampleRows:  getSampleRows(data, delimiter, skipLines+1, maxSampleRows),
	}, nil
}

// DetectDelimiter picks the delimiter that splits the first lines into the
// same number (at least three) of fields most consistently. Used for
// headerless exports.
func DetectDelimiter(data []byte) (rune, error) {
	lines := splitLines(string(bytes.TrimPrefix(data, utf8BOM)))
	best, bestScore := rune(0), 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		counts := map[int]int{}
		for i, line := range lines {
			if i >= maxHeaderScan {
				break
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if n := strings.Count(line, string(d)); n >= minHeaderFields-1 {
				counts[n]++
			}
		}
		for _, score := range counts {
			if score > bestScore {
				best, bestScore = d, score
			}
		}
	}
	if bestScore == 0 {
		return 0, ErrInvalidDelimiter
	}
	return best, nil
}

// ReadRecords parses delimited text into rows, tolerating ragged lines.
func ReadRecords(data []byte, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// FindHeaderRow locates the header row of a tabulated sheet: the first row in
// the scan window with at least two cells naming a known column.
func FindHeaderRow(rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, ErrEmptyFile
	}
	for i, row := range rows {
		if i >= maxHeaderScan {
			break
		}
		matches := 0
		for _, cell := range row {
			if isHeaderCell(cell) {
				matches++
			}
		}
		if matches >= 2 {
			return i, nil
		}
	}
	return 0, ErrNoHeadersFound
}

// SuggestColumns attempts to auto-match columns based on header names
func SuggestColumns(headers []string) *ColumnSuggestions {
	s := &ColumnSuggestions{
		DateCol:     -1,
		DescCol:     -1,
		AmountCol:   -1,
		DebitCol:    -1,
		CreditCol:   -1,
		CategoryCol: -1,
		TypeCol:     -1,
		BalanceCol:  -1,
	}

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}

		switch {
		case s.DateCol == -1 && (strings.Contains(h, "data mov") || strings.Contains(h, "date") ||
			strings.Contains(h, "fecha") || h == "data" || h == "dt" || h == "txn dt"):
			s.DateCol = i

		case s.DescCol == -1 && (strings.Contains(h, "descri") || strings.Contains(h, "merchant") ||
			strings.Contains(h, "narration") || strings.Contains(h, "particulars") ||
			strings.Contains(h, "details") || strings.Contains(h, "memo") || strings.Contains(h, "payee") ||
			strings.Contains(h, "remarks") || h == "nome" || h == "name"):
			s.DescCol = i

		case s.DebitCol == -1 && (strings.Contains(h, "débito") || strings.Contains(h, "debito") ||
			strings.Contains(h, "debit") || strings.Contains(h, "cargo") || strings.Contains(h, "withdrawal")):
			s.DebitCol = i

		case s.CreditCol == -1 && (strings.Contains(h, "crédito") || strings.Contains(h, "credito") ||
			strings.Contains(h, "credit") || strings.Contains(h, "abono") || strings.Contains(h, "deposit")):
			s.CreditCol = i

		case s.BalanceCol == -1 && (strings.Contains(h, "balance") || strings.Contains(h, "saldo")):
			s.BalanceCol = i

		case s.AmountCol == -1 && (strings.Contains(h, "amount") || h == "amt" || h == "valor" ||
			h == "importe" || h == "montante"):
			s.AmountCol = i

		case s.CategoryCol == -1 && strings.Contains(h, "categ"):
			s.CategoryCol = i

		case s.TypeCol == -1 && (h == "type" || h == "tipo" || h == "dr/cr" || h == "cr/dr"):
			s.TypeCol = i
		}
	}

	s.IsDoubleEntry = s.DebitCol != -1 && s.CreditCol != -1
	return s
}

// InferColumns guesses column roles from cell contents when a sheet has no
// header row: the first date-looking column, the last amount-looking column
// and the column with the longest text.
func InferColumns(rows [][]string) (*ColumnSuggestions, error) {
	s := &ColumnSuggestions{
		DateCol: -1, DescCol: -1, AmountCol: -1, DebitCol: -1,
		CreditCol: -1, CategoryCol: -1, TypeCol: -1, BalanceCol: -1,
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width < minHeaderFields {
		return nil, ErrNoColumns
	}

	dates := make([]int, width)
	amounts := make([]int, width)
	textLen := make([]int, width)
	for i, r := range rows {
		if i >= maxHeaderScan*2 {
			break
		}
		for c, cell := range r {
			cell = strings.TrimSpace(cell)
			switch {
			case cell == "":
			case dateCell.MatchString(cell):
				dates[c]++
			case amountCell.MatchString(cell):
				amounts[c]++
			default:
				textLen[c] += len(cell)
			}
		}
	}

	for c := 0; c < width; c++ {
		if s.DateCol == -1 && dates[c] > 0 {
			s.DateCol = c
		}
		if amounts[c] > 0 {
			s.AmountCol = c
		}
		if textLen[c] > 0 && (s.DescCol == -1 || textLen[c] > textLen[s.DescCol]) {
			s.DescCol = c
		}
	}

	if !s.Usable() {
		return nil, ErrNoColumns
	}
	return s, nil
}

// Fingerprint identifies a bank layout by its header set.
func Fingerprint(headers []string) string {
	return generateFingerprint(headers)
}

func isHeaderCell(cell string) bool {
	c := strings.ToLower(strings.TrimSpace(cell))
	if c == "" || len(c) > 40 {
		return false
	}
	for _, kw := range headerKeywords {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

// findHeaderRow locates the header row and its delimiter
func findHeaderRow(lines []string) (rune, int, error) {
	delimiters := []rune{';', '\t', ',', '|'}

	for i, line := range lines {
		if i > maxHeaderScan {
			break
		}

		lineLower := strings.ToLower(line)

		hasKeyword := false
		for _, kw := range headerKeywords {
			if strings.Contains(lineLower, kw) {
				hasKeyword = true
				break
			}
		}

		if !hasKeyword {
			continue
		}

		for _, d := range delimiters {
			if strings.Count(line, string(d)) >= minHeaderFields-1 {
				return d, i, nil
			}
		}
	}

	return 0, 0, ErrNoHeadersFound
}

// generateFingerprint creates a unique hash from header names
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns the first N data rows after the header
func getSampleRows(data []byte, delimiter rune, startLine, maxRows int) [][]string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // Allow variable fields

	var rows [][]string
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		if lineNum >= startLine {
			rows = append(rows, record)
			if len(rows) >= maxRows {
				break
			}
		}
		lineNum++
	}

	return rows
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
