// Package service implements manual expense management and the learning
// that happens when a user recategorizes an expense.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/classifier"
	importrepo "github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
)

// RuleStore is the merchant rule storage shared with statement import.
type RuleStore interface {
	UpsertRule(ctx context.Context, userID uuid.UUID, merchantName, category string) (*importrepo.MerchantRule, error)
	ListRules(ctx context.Context, userID uuid.UUID) ([]*importrepo.MerchantRule, error)
	DeleteRule(ctx context.Context, userID uuid.UUID, merchantName string) error
}

// ModelInvalidator drops cached per-user models after labels change.
type ModelInvalidator interface {
	Invalidate(userID uuid.UUID)
}

// Deps wires an ExpenseService. Learner is optional.
type Deps struct {
	Repo       repository.ExpenseRepository
	Rules      RuleStore
	Classifier classifier.Classifier
	Learner    ModelInvalidator
	Logger     *slog.Logger
}

type ExpenseService struct {
	repo       repository.ExpenseRepository
	rules      RuleStore
	classifier classifier.Classifier
	learner    ModelInvalidator
	logger     *slog.Logger
}

func NewExpenseService(d Deps) *ExpenseService {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &ExpenseService{
		repo:       d.Repo,
		rules:      d.Rules,
		classifier: d.Classifier,
		learner:    d.Learner,
		logger:     d.Logger,
	}
}

// CreateParams describes a manually entered expense. An empty Category is
// classified from the description.
type CreateParams struct {
	Date          time.Time
	Description   string
	Amount        decimal.Decimal
	Category      string
	Type          string
	PaymentMethod string
}

// UpdateParams changes only the non-nil fields.
type UpdateParams struct {
	Date          *time.Time
	Description   *string
	Amount        *decimal.Decimal
	Type          *string
	PaymentMethod *string
}

// CategoryUpdate reports the outcome of UpdateExpenseCategory.
type CategoryUpdate struct {
	Expense        *repository.Expense
	Rule           *importrepo.MerchantRule // nil when the description has no merchant
	SimilarUpdated int
}

// Suggestion is a category proposal for free text.
type Suggestion struct {
	classifier.Suggestion
	IsAmbiguous bool
}

func (s *ExpenseService) CreateExpense(ctx context.Context, userID uuid.UUID, p CreateParams) (*repository.Expense, error) {
	l := s.logger.With(slog.String("method", "CreateExpense"), slog.String("user_id", userID.String()))

	txType := p.Type
	if txType == "" {
		txType = common.TypeExpense
	}
	description := strings.TrimSpace(p.Description)

	category := p.Category
	if category == "" {
		sug, err := s.classifier.Classify(ctx, userID, classifier.Input{
			Description: description,
			Amount:      p.Amount,
			Type:        txType,
		})
		if err != nil {
			return nil, err
		}
		category = sug.Category
	} else {
		c, ok := common.CanonicalCategory(category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", common.ErrInvalidCategory, category)
		}
		category = c
	}

	details := normalizer.ParsePaymentDetails(description)
	method := p.PaymentMethod
	if method == "" {
		method = details.Method
	}

	e := &repository.Expense{
		UserID:         userID,
		Amount:         p.Amount.Abs(),
		Category:       category,
		Date:           p.Date,
		Description:    description,
		Type:           txType,
		PaymentMethod:  optional(method),
		UPIID:          optional(details.UPIID),
		TransactionRef: optional(details.TransactionRef),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		l.ErrorContext(ctx, "failed to create expense", slog.Any("error", err))
		return nil, err
	}

	l.InfoContext(ctx, "expense created",
		slog.String("expense_id", e.ID.String()),
		slog.String("category", e.Category))
	return e, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID uuid.UUID, f repository.ListFilter) ([]*repository.Expense, int, error) {
	if f.Category != "" {
		c, ok := common.CanonicalCategory(f.Category)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", common.ErrInvalidCategory, f.Category)
		}
		f.Category = c
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return nil, 0, common.ErrInvalidDateRange
	}
	return s.repo.List(ctx, userID, f)
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID, id uuid.UUID) (*repository.Expense, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, userID, id uuid.UUID, p UpdateParams) (*repository.Expense, error) {
	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		e.Amount = p.Amount.Abs()
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = optional(*p.PaymentMethod)
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "expense deleted",
		slog.String("method", "DeleteExpense"),
		slog.String("expense_id", id.String()))
	return nil
}

// UpdateExpenseCategory files the expense under category and learns the
// merchant rule so future imports of the same merchant get it too. With
// applyToSimilar every other expense of the same merchant is moved as well.
func (s *ExpenseService) UpdateExpenseCategory(ctx context.Context, userID, id uuid.UUID, category string, applyToSimilar bool) (*CategoryUpdate, error) {
	l := s.logger.With(slog.String("method", "UpdateExpenseCategory"), slog.String("user_id", userID.String()))

	canonical, ok := common.CanonicalCategory(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidCategory, category)
	}

	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	e.Category = canonical
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	out := &CategoryUpdate{Expense: e}

	merchant := normalizer.NormalizeMerchant(e.Description)
	if merchant == "" {
		return out, nil
	}

	// The category change is already stored; a failed rule write only costs
	// the learning.
	rule, err := s.rules.UpsertRule(ctx, userID, merchant, canonical)
	if err != nil {
		l.WarnContext(ctx, "failed to learn merchant rule", slog.String("merchant", merchant), slog.Any("error", err))
	} else {
		out.Rule = rule
		if s.learner != nil {
			s.learner.Invalidate(userID)
		}
	}

	if applyToSimilar {
		n, err := s.applyToMerchant(ctx, userID, e.ID, merchant, canonical)
		if err != nil {
			return nil, err
		}
		out.SimilarUpdated = n
	}

	l.InfoContext(ctx, "expense recategorized",
		slog.String("expense_id", e.ID.String()),
		slog.String("category", canonical),
		slog.Int("similar_updated", out.SimilarUpdated))
	return out, nil
}

func (s *ExpenseService) applyToMerchant(ctx context.Context, userID, exclude uuid.UUID, merchant, category string) (int, error) {
	candidates, err := s.repo.ListMerchantCandidates(ctx, userID)
	if err != nil {
		return 0, err
	}
	var ids []uuid.UUID
	for _, c := range candidates {
		if c.ID == exclude || c.Category == category {
			continue
		}
		if normalizer.NormalizeMerchant(c.Description) == merchant {
			ids = append(ids, c.ID)
		}
	}
	return s.repo.SetCategory(ctx, userID, ids, category)
}

func (s *ExpenseService) ListMerchantRules(ctx context.Context, userID uuid.UUID) ([]*importrepo.MerchantRule, error) {
	return s.rules.ListRules(ctx, userID)
}

// DeleteMerchantRule forgets a learned rule. The name is normalized first so
// a raw description works as well as the stored key.
func (s *ExpenseService) DeleteMerchantRule(ctx context.Context, userID uuid.UUID, merchantName string) error {
	key := normalizer.NormalizeMerchant(merchantName)
	if key == "" {
		return fmt.Errorf("merchant %q: %w", merchantName, common.ErrNotFound)
	}
	return s.rules.DeleteRule(ctx, userID, key)
}

// SuggestCategory runs the classifier on free text. IsAmbiguous flags
// descriptions too vague to categorize from the text alone.
func (s *ExpenseService) SuggestCategory(ctx context.Context, userID uuid.UUID, description string, amount decimal.Decimal) (*Suggestion, error) {
	sug, err := s.classifier.Classify(ctx, userID, classifier.Input{
		Description: description,
		Amount:      amount.Abs(),
		Type:        common.TypeExpense,
	})
	if err != nil {
		return nil, err
	}
	return &Suggestion{
		Suggestion:  sug,
		IsAmbiguous: classifier.IsAmbiguousDescription(description),
	}, nil
}

// ListCategories returns the category vocabulary.
func (s *ExpenseService) ListCategories() []string {
	return append([]string(nil), common.Categories...)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
