package normalizer

import "testing"

func TestNormalizeMerchant(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"UPI-AMAZON PAY-12345678", "amazon pay"},
		{"Swiggy Order #123456789", "swiggy order"},
		{"ATM WDL 123456", "atm wdl"},
		{"Walmart Groceries", "walmart groceries"},
		{"  WALMART   groceries ", "walmart groceries"},
		{"POS-Starbucks*Store 12", "starbucks store 12"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := NormalizeMerchant(tc.input); got != tc.expected {
			t.Errorf("NormalizeMerchant(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestParsePaymentDetails(t *testing.T) {
	tests := []struct {
		input  string
		method string
		upi    string
		ref    string
	}{
		{"UPI/412345678901/Paid to/merchant@okaxis", "UPI", "merchant@okaxis", "412345678901"},
		{"NEFT-HDFC0001234-ACME PAYROLL", "NEFT", "", ""},
		{"ATM WDL 02-01 MG ROAD", "ATM", "", ""},
		{"CHQ DEP 000123 REF: AB12CD", "Cheque", "", "AB12CD"},
		{"POS 4521 TESCO STORES", "Card", "", ""},
		{"Coffee", "", "", ""},
	}

	for _, tc := range tests {
		got := ParsePaymentDetails(tc.input)
		if got.Method != tc.method || got.UPIID != tc.upi || got.TransactionRef != tc.ref {
			t.Errorf("ParsePaymentDetails(%q) = %+v, want method=%q upi=%q ref=%q", tc.input, got, tc.method, tc.upi, tc.ref)
		}
	}
}

func TestLooksLikeIncome(t *testing.T) {
	if !LooksLikeIncome("ACME Corp SALARY JAN") {
		t.Error("salary should look like income")
	}
	if LooksLikeIncome("Walmart Groceries") {
		t.Error("groceries should not look like income")
	}
}
