package common

import "strings"

// Expense categories understood by the classifier and the clarification UI.
const (
	CategoryGroceries     = "Groceries"
	CategoryEntertainment = "Entertainment"
	CategoryRent          = "Rent"
	CategoryTransport     = "Transport"
	CategoryBills         = "Bills"
	CategoryShopping      = "Shopping"
	CategoryHealthcare    = "Healthcare"
	CategoryIncome        = "Income"
	CategoryOther         = "Other"
	CategoryUncategorized = "Uncategorized"
)

// Categories lists the vocabulary in display order.
var Categories = []string{
	CategoryGroceries,
	CategoryEntertainment,
	CategoryRent,
	CategoryTransport,
	CategoryBills,
	CategoryShopping,
	CategoryHealthcare,
	CategoryIncome,
	CategoryOther,
	CategoryUncategorized,
}

// CanonicalCategory returns the vocabulary spelling of name, matched case-insensitively.
func CanonicalCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// IsValidCategory reports whether name belongs to the vocabulary.
func IsValidCategory(name string) bool {
	_, ok := CanonicalCategory(name)
	return ok
}

// Transaction types.
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

// Confidence tags attached to a category suggestion.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps free text to a Confidence, defaulting to low.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
