package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/sniffer"
)

var excelSerial = regexp.MustCompile(`^\d{5}(\.\d+)?$`)

// layout is the resolved column mapping plus the format hints sampled from the data.
type layout struct {
	cols       *sniffer.ColumnSuggestions
	dateFormat string
	european   bool
	mixedSigns bool
}

// fromGrid locates the header (or infers columns for headerless sheets) and
// converts every dated row into a Transaction. Rows without a parseable date
// are not data rows and are ignored; dated rows with an unreadable amount are
// counted as skipped.
func (e *Extractor) fromGrid(grid [][]string) ([]Transaction, []string, int, error) {
	var (
		headers []string
		data    [][]string
		cols    *sniffer.ColumnSuggestions
	)

	if idx, err := sniffer.FindHeaderRow(grid); err == nil {
		headers = trimCells(grid[idx])
		cols = sniffer.SuggestColumns(headers)
		data = grid[idx+1:]
		if !cols.Usable() {
			return nil, headers, 0, sniffer.ErrNoColumns
		}
	} else {
		inferred, inferErr := sniffer.InferColumns(grid)
		if inferErr != nil {
			return nil, nil, 0, inferErr
		}
		cols = inferred
		data = grid
	}

	lay := e.sampleLayout(cols, data)

	var (
		txns    []Transaction
		skipped int
	)
	for i, row := range data {
		if isBlank(row) {
			continue
		}
		date, err := e.parseDate(cell(row, cols.DateCol), lay.dateFormat)
		if err != nil {
			continue
		}
		txn, ok := buildTransaction(row, lay, date)
		if !ok {
			skipped++
			continue
		}
		txn.SourceRow = i
		txns = append(txns, txn)
	}

	return txns, headers, skipped, nil
}

func (e *Extractor) sampleLayout(cols *sniffer.ColumnSuggestions, data [][]string) layout {
	var dateSamples, amountSamples []string
	positives, negatives := 0, 0
	for _, row := range data {
		if d := cell(row, cols.DateCol); d != "" {
			dateSamples = append(dateSamples, d)
		}
		for _, c := range []int{cols.AmountCol, cols.DebitCol, cols.CreditCol} {
			if v := cell(row, c); v != "" {
				amountSamples = append(amountSamples, v)
			}
		}
	}
	european := normalizer.DetectEuropean(amountSamples)
	if cols.AmountCol >= 0 {
		for _, row := range data {
			v, err := normalizer.ParseAmount(cell(row, cols.AmountCol), european)
			if err != nil {
				continue
			}
			switch v.Sign() {
			case 1:
				positives++
			case -1:
				negatives++
			}
		}
	}
	return layout{
		cols:       cols,
		dateFormat: normalizer.DetectDateFormat(dateSamples),
		european:   european,
		mixedSigns: positives > 0 && negatives > 0,
	}
}

func buildTransaction(row []string, lay layout, date time.Time) (Transaction, bool) {
	cols := lay.cols
	desc := normalizer.CleanDescription(cell(row, cols.DescCol))

	var (
		amount     decimal.Decimal
		fromCredit bool
		err        error
	)
	switch {
	case cols.DebitCol >= 0 || cols.CreditCol >= 0:
		amount, err = normalizer.NormalizeDebitCredit(cell(row, cols.DebitCol), cell(row, cols.CreditCol), lay.european)
		fromCredit = amount.Sign() > 0
	default:
		amount, err = normalizer.ParseAmount(cell(row, cols.AmountCol), lay.european)
		if marker := strings.ToLower(cell(row, cols.TypeCol)); marker != "" {
			switch {
			case strings.HasPrefix(marker, "dr"), strings.HasPrefix(marker, "debit"):
				amount = amount.Abs().Neg()
			case strings.HasPrefix(marker, "cr"), strings.HasPrefix(marker, "credit"):
				amount = amount.Abs()
				fromCredit = true
			}
		}
	}
	if err != nil || amount.IsZero() {
		return Transaction{}, false
	}
	if desc == "" {
		desc = "Unknown transaction"
	}

	txType := classifyType(amount, desc, fromCredit, lay.mixedSigns)
	if txType == common.TypeIncome {
		amount = amount.Abs()
	} else {
		amount = amount.Abs().Neg()
	}

	return Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        txType,
		Payment:     normalizer.ParsePaymentDetails(desc),
	}, true
}

// classifyType decides income vs expense. Credits and positive amounts in a
// signed ledger are income; a list of bare positive amounts is treated as a
// list of expenses unless the narration reads as income.
func classifyType(amount decimal.Decimal, desc string, fromCredit, mixedSigns bool) string {
	switch {
	case fromCredit:
		return common.TypeIncome
	case amount.Sign() < 0:
		return common.TypeExpense
	case mixedSigns:
		return common.TypeIncome
	case normalizer.LooksLikeIncome(desc):
		return common.TypeIncome
	}
	return common.TypeExpense
}

func (e *Extractor) parseDate(raw, format string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if excelSerial.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				y, m, d := t.Date()
				return time.Date(y, m, d, 0, 0, 0, 0, e.loc), nil
			}
		}
	}
	t, err := normalizer.ParseFlexibleDate(raw, format, e.loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc), nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
