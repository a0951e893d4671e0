package normalizer

import (
	"regexp"
	"strings"
)

const maxMerchantLen = 100

var (
	merchantPrefixes = []string{"upi-", "pos-", "neft-", "imps-", "atm-", "online-", "card-"}
	longDigitRun     = regexp.MustCompile(`\d{6,}`)
	nonAlphaNum      = regexp.MustCompile(`[^a-z0-9\s]`)

	upiSlashID  = regexp.MustCompile(`/(-\d+@[a-zA-Z]+)`)
	upiDashID   = regexp.MustCompile(`(?i)UPI-([a-zA-Z0-9._-]+@[a-zA-Z]+)(?:-|$)`)
	upiAnyID    = regexp.MustCompile(`(?:[/@\s]|^)([a-zA-Z0-9._-]+@[a-zA-Z]+)(?:[/\s-]|$)`)
	upiRef      = regexp.MustCompile(`(?i)UPI[/-](\d{8,})[/-]`)
	labeledRef  = regexp.MustCompile(`(?i)\bREF(?:ERENCE)?(?:\s*NO)?[.:\s]+([A-Z0-9]+)`)
	txnRef      = regexp.MustCompile(`(?i)(?:TRANSACTION|TXN)\s*(?:ID)?[:\s]+([A-Z0-9]+)`)
	rtgsRef     = regexp.MustCompile(`[/-](R\d{7,})(?:[/-]|$)`)
	bareLongRef = regexp.MustCompile(`\b(\d{10,})\b`)

	chequePattern  = regexp.MustCompile(`\bCHQ\b|\bCHEQUE\b|\bCHECK\b`)
	cashDeposit    = regexp.MustCompile(`\bCASH\s+DEP(OSIT)?\b`)
	cardPattern    = regexp.MustCompile(`\bPOS\b|\bCARD\b|\bVISA\b|\bMASTERCARD\b|\bDEBIT CARD\b`)
	incomeKeywords = regexp.MustCompile(`(?i)\b(salary|payroll|refund|interest|dividend|cashback|reversal|credited)\b`)
)

// NormalizeMerchant reduces a transaction description to a stable merchant key:
// lowercase, no rail prefix (upi-, pos-, ...), no reference numbers of six or
// more digits, alphanumerics only, single spaces.
//
//	"UPI-AMAZON PAY-12345678" -> "amazon pay"
func NormalizeMerchant(description string) string {
	n := strings.ToLower(strings.TrimSpace(description))
	for _, p := range merchantPrefixes {
		n = strings.TrimPrefix(n, p)
	}
	n = longDigitRun.ReplaceAllString(n, "")
	n = nonAlphaNum.ReplaceAllString(n, " ")
	n = strings.Join(strings.Fields(n), " ")
	if len(n) > maxMerchantLen {
		n = strings.TrimSpace(n[:maxMerchantLen])
	}
	return n
}

// PaymentDetails are the rail details recoverable from a bank narration.
type PaymentDetails struct {
	Method         string // UPI, NEFT, IMPS, RTGS, ATM, Cheque, Cash, Card or empty
	UPIID          string
	TransactionRef string
}

// ParsePaymentDetails extracts payment method, UPI id and reference from a description.
func ParsePaymentDetails(description string) PaymentDetails {
	if strings.TrimSpace(description) == "" {
		return PaymentDetails{}
	}
	return PaymentDetails{
		Method:         paymentMethod(description),
		UPIID:          upiID(description),
		TransactionRef: transactionRef(description),
	}
}

func paymentMethod(text string) string {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "UPI"):
		return "UPI"
	case strings.Contains(upper, "RTGS"):
		return "RTGS"
	case strings.Contains(upper, "IMPS"):
		return "IMPS"
	case strings.Contains(upper, "NEFT"):
		return "NEFT"
	case strings.Contains(upper, "ATM") || strings.Contains(upper, "NWD"):
		return "ATM"
	case chequePattern.MatchString(upper):
		return "Cheque"
	case cashDeposit.MatchString(upper):
		return "Cash"
	case cardPattern.MatchString(upper):
		return "Card"
	}
	return ""
}

func upiID(text string) string {
	if m := upiSlashID.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := upiDashID.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if all := upiAnyID.FindAllStringSubmatch(text, -1); len(all) > 0 {
		return all[len(all)-1][1]
	}
	return ""
}

func transactionRef(text string) string {
	if m := upiRef.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := labeledRef.FindStringSubmatch(text); m != nil && len(m[1]) > 3 && !strings.EqualFold(m[1], "ref") {
		return m[1]
	}
	if m := txnRef.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := rtgsRef.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareLongRef.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// LooksLikeIncome reports whether a description reads as money coming in.
func LooksLikeIncome(description string) bool {
	return incomeKeywords.MatchString(description)
}
