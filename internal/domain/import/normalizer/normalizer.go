// Package normalizer handles regional money and date parsing.
// Converts bank statement cells into signed decimal amounts, calendar dates and
// cleaned descriptions.
package normalizer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount format")
	ErrInvalidDate   = errors.New("invalid date format")
)

var (
	spacePattern     = regexp.MustCompile(`\s+`)
	crDrSuffix       = regexp.MustCompile(`(?i)\s*(cr|dr)\.?\s*$`)
	europeanPattern  = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*,\d{1,2}$|^-?\d+,\d{1,2}$`)
	americanPattern  = regexp.MustCompile(`^-?\d{1,3}(,\d{3})*\.\d{1,2}$|^-?\d+\.\d{1,2}$`)
	ddmmyyyyPattern  = regexp.MustCompile(`^\d{1,2}[-/.]\d{1,2}[-/.]\d{4}$`)
	isoPattern       = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)
	dateTimeTrailing = regexp.MustCompile(`[T\s]\d{1,2}:\d{2}(:\d{2})?.*$`)
)

// ParseAmount converts a string amount to a signed decimal.
// Supports both European (1.234,56) and American (1,234.56) formats, currency
// symbols, parentheses for negatives and a trailing Dr/Cr marker (Dr is negative).
func ParseAmount(raw string, isEuropean bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}

	isNegative := false
	if m := crDrSuffix.FindStringSubmatch(raw); m != nil {
		isNegative = strings.EqualFold(m[1], "dr")
		raw = crDrSuffix.ReplaceAllString(raw, "")
	}
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		isNegative = true
	}

	// Clean the string: keep digits, comma, period, and minus
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)

	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, nil
	}

	if strings.HasPrefix(cleaned, "-") || strings.HasSuffix(cleaned, "-") {
		isNegative = true
	}
	cleaned = strings.Trim(cleaned, "-")

	if isEuropean {
		// European: 1.234,56 -> 1234.56
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		// American: 1,234.56 -> 1234.56
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	val, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	if isNegative {
		val = val.Neg()
	}
	return val, nil
}

// DetectEuropean guesses the decimal separator from sample amount cells.
// It returns true when more samples look like 1.234,56 than like 1,234.56.
func DetectEuropean(samples []string) bool {
	european, american := 0, 0
	for _, s := range samples {
		s = strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
				return r
			}
			return -1
		}, s)
		switch {
		case europeanPattern.MatchString(s):
			european++
		case americanPattern.MatchString(s):
			american++
		}
	}
	return european > american
}

// NormalizeDebitCredit merges separate debit and credit columns into a single signed amount
// Debit = negative (money out), Credit = positive (money in)
func NormalizeDebitCredit(debitStr, creditStr string, isEuropean bool) (decimal.Decimal, error) {
	debitStr = strings.TrimSpace(debitStr)
	creditStr = strings.TrimSpace(creditStr)

	if debitStr != "" {
		amount, err := ParseAmount(debitStr, isEuropean)
		if err != nil {
			return decimal.Zero, err
		}
		if !amount.IsZero() {
			return amount.Abs().Neg(), nil
		}
	}

	if creditStr != "" {
		amount, err := ParseAmount(creditStr, isEuropean)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Abs(), nil
	}

	return decimal.Zero, nil
}

// Common date formats used by banks worldwide
var dateFormats = []string{
	// ISO (YYYY-MM-DD)
	"2006-01-02",
	"2006/01/02",

	// European (DD-MM-YYYY variants)
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2-1-2006",
	"2/1/2006",
	"02/01/06",
	"02-01-06",

	// American (MM-DD-YYYY variants)
	"01-02-2006",
	"01/02/2006",
	"1/2/2006",

	// Month names, common in Indian and UK statements
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"02 Jan 06",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 January 2006",
}

// ParseFlexibleDate attempts to parse a date using multiple formats.
// A trailing time of day is ignored; the result is midnight in loc.
func ParseFlexibleDate(raw string, preferredFormat string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}

	if loc == nil {
		loc = time.UTC
	}

	if preferredFormat != "" {
		goFormat := convertDateFormat(preferredFormat)
		if t, err := time.ParseInLocation(goFormat, raw, loc); err == nil {
			return t, nil
		}
	}

	candidates := []string{raw}
	if stripped := dateTimeTrailing.ReplaceAllString(raw, ""); stripped != raw {
		candidates = append(candidates, strings.TrimSpace(stripped))
	}

	for _, candidate := range candidates {
		for _, format := range dateFormats {
			if t, err := time.ParseInLocation(format, candidate, loc); err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, ErrInvalidDate
}

// dateFormatReplacer converts user-friendly format strings to Go layouts.
// Longer tokens come first so YYYY is never read as two YY.
var dateFormatReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

// convertDateFormat converts user-friendly format strings to Go format
// e.g., "DD-MM-YYYY" -> "02-01-2006"
func convertDateFormat(format string) string {
	return dateFormatReplacer.Replace(format)
}

// DetectDateFormat attempts to guess the date format from sample data.
// A first component above 12 in any sample settles day-first; a second component
// above 12 settles month-first.
func DetectDateFormat(samples []string) string {
	if len(samples) == 0 {
		return "DD-MM-YYYY"
	}

	first := strings.TrimSpace(samples[0])
	if isoPattern.MatchString(first) {
		if strings.Contains(first, "/") {
			return "YYYY/MM/DD"
		}
		return "YYYY-MM-DD"
	}

	if !ddmmyyyyPattern.MatchString(first) {
		return ""
	}

	sep := "-"
	switch {
	case strings.Contains(first, "/"):
		sep = "/"
	case strings.Contains(first, "."):
		sep = "."
	}

	for _, sample := range samples {
		parts := strings.FieldsFunc(strings.TrimSpace(sample), func(r rune) bool {
			return r == '-' || r == '/' || r == '.'
		})
		if len(parts) < 2 {
			continue
		}
		a, _ := strconv.Atoi(parts[0])
		b, _ := strconv.Atoi(parts[1])
		if a > 12 {
			return "DD" + sep + "MM" + sep + "YYYY"
		}
		if b > 12 {
			return "MM" + sep + "DD" + sep + "YYYY"
		}
	}

	// Default to European format (more common globally)
	return "DD" + sep + "MM" + sep + "YYYY"
}

// CleanDescription normalizes merchant/description text
func CleanDescription(raw string) string {
	result := strings.TrimSpace(raw)
	return spacePattern.ReplaceAllString(result, " ")
}
