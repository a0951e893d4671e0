package classifier

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

var (
	businessIndicators = []string{"store", "shop", "mart", "center", "cafe", "restaurant", "hotel", "bank", "atm"}
	paymentIndicators  = []string{"upi", "paytm", "gpay", "phonepe", "amazon", "flipkart", "swiggy", "zomato"}
	genericTerms       = []string{"payment", "transfer", "transaction", "debit", "credit", "cash", "online"}
)

// IsAmbiguousDescription reports whether a description says too little to
// categorize from text alone: very short text, one or two capitalized words
// that read like a person's name, or a short generic phrase such as
// "Online transfer".
func IsAmbiguousDescription(description string) bool {
	d := strings.TrimSpace(description)
	if utf8.RuneCountInString(d) < 3 {
		return true
	}

	words := strings.Fields(d)
	lower := strings.ToLower(d)

	if len(words) <= 2 && allCapitalized(words) {
		if containsAny(lower, businessIndicators) || containsAny(lower, paymentIndicators) {
			return false
		}
		return true
	}

	return len(words) <= 3 && containsAny(lower, genericTerms)
}

func allCapitalized(words []string) bool {
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type defaultStage struct{}

// DefaultStage files descriptions that name a recognizable payee but matched
// nothing under Other. Ambiguous descriptions are passed on so they end up
// Uncategorized and are surfaced for clarification.
func DefaultStage() Stage { return defaultStage{} }

func (defaultStage) Name() string { return SourceDefault }

func (defaultStage) Suggest(_ context.Context, _ uuid.UUID, in Input) (Suggestion, bool, error) {
	if IsAmbiguousDescription(in.Description) {
		return Suggestion{}, false, nil
	}
	return Suggestion{
		Category:     common.CategoryOther,
		Confidence:   common.ConfidenceMedium,
		Reasoning:    "No matching category rule for this merchant",
		Alternatives: []string{common.CategoryShopping, common.CategoryBills},
	}, true, nil
}
