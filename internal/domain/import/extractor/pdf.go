package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/sniffer"
)

// ErrEncrypted is returned by a TextExtractor when the document needs a
// password that was not supplied or did not open it.
var ErrEncrypted = errors.New("pdf is password protected")

// TextExtractor renders a PDF to layout-preserving text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, password string) (string, error)
}

// Pdftotext shells out to poppler's pdftotext.
type Pdftotext struct {
	Path string
}

// NewPdftotext returns a TextExtractor using the binary at path, or
// "pdftotext" from PATH when path is empty.
func NewPdftotext(path string) *Pdftotext {
	if path == "" {
		path = "pdftotext"
	}
	return &Pdftotext{Path: path}
}

// ExtractText implements TextExtractor. An /Encrypt dictionary alone does not
// mean a password is needed: owner-password-only files open without one, so
// ErrEncrypted is returned only when pdftotext rejects the (possibly empty)
// user password.
func (p *Pdftotext) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	tmpFile, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	args := []string{"-layout"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, tmpFile.Name(), "-")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, args...)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if strings.Contains(strings.ToLower(stderr.String()), "incorrect password") {
			return "", ErrEncrypted
		}
		return "", fmt.Errorf("pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}

var (
	columnGap  = regexp.MustCompile(`\s{2,}`)
	cellRun    = regexp.MustCompile(`\S+(?: \S+)*`)

	// "05/01/2024  UPI-SWIGGY-1234   450.00   10,234.50"
	pdfTxnLine = regexp.MustCompile(`^(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}[ -][A-Za-z]{3}[ -]\d{2,4})\s+(.+?)\s+(\(?-?[$€£₹]?[\d,]+\.\d{2}\)?(?:\s*(?i:cr|dr))?)(?:\s+(-?[\d,]+\.\d{2}(?:\s*(?i:cr|dr))?))?\s*$`)
)

func splitPDFLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(strings.ReplaceAll(l, "\f", ""), " \t")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// linesToGrid splits layout text on runs of two or more spaces.
func linesToGrid(lines []string) [][]string {
	grid := make([][]string, 0, len(lines))
	for _, l := range lines {
		grid = append(grid, columnGap.Split(strings.TrimSpace(l), -1))
	}
	return grid
}

type span struct {
	start, end int
	text       string
}

func segments(line string) []span {
	idx := cellRun.FindAllStringIndex(line, -1)
	out := make([]span, 0, len(idx))
	for _, r := range idx {
		out = append(out, span{start: r[0], end: r[1], text: line[r[0]:r[1]]})
	}
	return out
}

// alignedGrid turns layout text into rows. When a header line is found, every
// later line is split by character position under the header columns, so an
// empty debit cell does not shift the credit amount one column left.
func alignedGrid(lines []string) [][]string {
	simple := linesToGrid(lines)
	idx, err := sniffer.FindHeaderRow(simple)
	if err != nil {
		return simple
	}

	header := segments(lines[idx])
	grid := make([][]string, 0, len(lines))
	grid = append(grid, simple[:idx+1]...)
	for _, l := range lines[idx+1:] {
		row := make([]string, len(header))
		for _, seg := range segments(l) {
			c := nearestColumn(header, seg)
			if row[c] != "" {
				row[c] += " "
			}
			row[c] += seg.text
		}
		grid = append(grid, row)
	}
	return grid
}

// nearestColumn picks the header span with the largest overlap, or the
// closest one when nothing overlaps.
func nearestColumn(header []span, seg span) int {
	best, bestOverlap, bestGap := 0, 0, -1
	for i, h := range header {
		overlap := min(seg.end, h.end) - max(seg.start, h.start)
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
			continue
		}
		if bestOverlap > 0 {
			continue
		}
		gap := h.start - seg.end
		if seg.start >= h.end {
			gap = seg.start - h.end
		}
		if gap < 0 {
			gap = 0
		}
		if bestGap == -1 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return best
}

// fromPDFLines parses statements whose table has no recognizable header, one
// date-led line per transaction with an optional trailing balance.
func (e *Extractor) fromPDFLines(lines []string) ([]Transaction, int) {
	var (
		matched [][]string
		samples []string
	)
	for _, l := range lines {
		if m := pdfTxnLine.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			matched = append(matched, m)
			samples = append(samples, m[1])
		}
	}
	dateFormat := normalizer.DetectDateFormat(samples)

	var (
		txns    []Transaction
		skipped int
	)
	for i, m := range matched {
		date, err := e.parseDate(m[1], dateFormat)
		if err != nil {
			skipped++
			continue
		}
		amount, err := normalizer.ParseAmount(m[3], false)
		if err != nil || amount.IsZero() {
			skipped++
			continue
		}
		desc := normalizer.CleanDescription(m[2])
		// A trailing Cr marks a credit in Indian statements.
		fromCredit := strings.HasSuffix(strings.ToLower(strings.TrimSpace(m[3])), "cr")
		txType := classifyType(amount, desc, fromCredit, false)
		if txType == common.TypeIncome {
			amount = amount.Abs()
		} else {
			amount = amount.Abs().Neg()
		}
		txns = append(txns, Transaction{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Type:        txType,
			Payment:     normalizer.ParsePaymentDetails(desc),
			SourceRow:   i,
		})
	}
	return txns, skipped
}
