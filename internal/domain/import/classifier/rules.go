package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
)

// RuleSource looks up a learned merchant rule. A missing rule is
// common.ErrNotFound.
type RuleSource interface {
	GetRule(ctx context.Context, userID uuid.UUID, merchantName string) (*repository.MerchantRule, error)
}

type ruleStage struct {
	rules RuleSource
}

// RuleStage applies categories the user chose for the same merchant before.
// A rule confirmed at least twice is trusted; a single confirmation is only a
// medium-confidence hint.
func RuleStage(rules RuleSource) Stage { return &ruleStage{rules: rules} }

func (*ruleStage) Name() string { return SourceRule }

func (r *ruleStage) Suggest(ctx context.Context, userID uuid.UUID, in Input) (Suggestion, bool, error) {
	merchant := normalizer.NormalizeMerchant(in.Description)
	if merchant == "" {
		return Suggestion{}, false, nil
	}
	rule, err := r.rules.GetRule(ctx, userID, merchant)
	if errors.Is(err, common.ErrNotFound) {
		return Suggestion{}, false, nil
	}
	if err != nil {
		return Suggestion{}, false, err
	}

	conf := common.ConfidenceMedium
	if rule.Confidence >= 2 {
		conf = common.ConfidenceHigh
	}
	return Suggestion{
		Category:   rule.Category,
		Confidence: conf,
		Reasoning:  fmt.Sprintf("Previously categorized as %s (%d times)", rule.Category, rule.Confidence),
	}, true, nil
}
