package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/classifier"
	importrepo "github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
)

type memExpenses struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*repository.Expense
}

func newMemExpenses() *memExpenses {
	return &memExpenses{rows: make(map[uuid.UUID]*repository.Expense)}
}

func (m *memExpenses) Create(_ context.Context, e *repository.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memExpenses) Get(_ context.Context, userID, id uuid.UUID) (*repository.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memExpenses) List(_ context.Context, userID uuid.UUID, f repository.ListFilter) ([]*repository.Expense, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.Expense
	for _, e := range m.rows {
		if e.UserID == userID && (f.Category == "" || e.Category == f.Category) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memExpenses) Update(_ context.Context, e *repository.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memExpenses) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return common.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memExpenses) ListMerchantCandidates(_ context.Context, userID uuid.UUID) ([]repository.MerchantCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.MerchantCandidate
	for _, e := range m.rows {
		if e.UserID == userID && e.Type == common.TypeExpense {
			out = append(out, repository.MerchantCandidate{ID: e.ID, Description: e.Description, Category: e.Category})
		}
	}
	return out, nil
}

func (m *memExpenses) SetCategory(_ context.Context, userID uuid.UUID, ids []uuid.UUID, category string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if e, ok := m.rows[id]; ok && e.UserID == userID && e.Category != category {
			e.Category = category
			n++
		}
	}
	return n, nil
}

type memRules struct {
	rules map[string]*importrepo.MerchantRule
}

func (m *memRules) UpsertRule(_ context.Context, userID uuid.UUID, merchant, category string) (*importrepo.MerchantRule, error) {
	r, ok := m.rules[merchant]
	switch {
	case !ok:
		r = &importrepo.MerchantRule{UserID: userID, MerchantName: merchant, Category: category, Confidence: 1}
		m.rules[merchant] = r
	case r.Category == category:
		r.Confidence++
	default:
		r.Category, r.Confidence = category, 1
	}
	return r, nil
}

func (m *memRules) ListRules(context.Context, uuid.UUID) ([]*importrepo.MerchantRule, error) {
	var out []*importrepo.MerchantRule
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRules) DeleteRule(_ context.Context, _ uuid.UUID, merchant string) error {
	if _, ok := m.rules[merchant]; !ok {
		return common.ErrNotFound
	}
	delete(m.rules, merchant)
	return nil
}

type fixedClassifier struct {
	s classifier.Suggestion
}

func (f fixedClassifier) Classify(context.Context, uuid.UUID, classifier.Input) (classifier.Suggestion, error) {
	return f.s, nil
}

type countingLearner struct{ n int }

func (c *countingLearner) Invalidate(uuid.UUID) { c.n++ }

func newTestService() (*ExpenseService, *memExpenses, *memRules, *countingLearner) {
	repo := newMemExpenses()
	rules := &memRules{rules: make(map[string]*importrepo.MerchantRule)}
	learner := &countingLearner{}
	svc := NewExpenseService(Deps{
		Repo:  repo,
		Rules: rules,
		Classifier: fixedClassifier{s: classifier.Suggestion{
			Category:   common.CategoryTransport,
			Confidence: common.ConfidenceHigh,
			Source:     classifier.SourceKeyword,
		}},
		Learner: learner,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return svc, repo, rules, learner
}

func TestCreateExpense_ClassifiesWhenCategoryEmpty(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	e, err := svc.CreateExpense(ctx, userID, CreateParams{
		Date:        time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Description: "UPI-UBER INDIA-uber@axis-412345678901",
		Amount:      decimal.RequireFromString("-230"),
	})
	require.NoError(t, err)
	assert.Equal(t, common.CategoryTransport, e.Category)
	assert.Equal(t, common.TypeExpense, e.Type)
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(230)))
	require.NotNil(t, e.PaymentMethod)
	assert.Equal(t, "UPI", *e.PaymentMethod)
}

func TestCreateExpense_CanonicalizesCategory(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	e, err := svc.CreateExpense(ctx, uuid.New(), CreateParams{
		Date:        time.Now(),
		Description: "Corner shop",
		Amount:      decimal.NewFromInt(4),
		Category:    "groceries",
	})
	require.NoError(t, err)
	assert.Equal(t, common.CategoryGroceries, e.Category)

	_, err = svc.CreateExpense(ctx, uuid.New(), CreateParams{
		Date:        time.Now(),
		Description: "Corner shop",
		Amount:      decimal.NewFromInt(4),
		Category:    "Snacks",
	})
	assert.ErrorIs(t, err, common.ErrInvalidCategory)
}

func TestUpdateExpenseCategory_LearnsAndAppliesToSimilar(t *testing.T) {
	svc, repo, rules, learner := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	mk := func(desc string) *repository.Expense {
		e := &repository.Expense{UserID: userID, Description: desc, Category: common.CategoryUncategorized, Type: common.TypeExpense}
		require.NoError(t, repo.Create(ctx, e))
		return e
	}
	first := mk("WALMART 0001234567")
	second := mk("walmart 0009876543")
	other := mk("UBER TRIP")

	res, err := svc.UpdateExpenseCategory(ctx, userID, first.ID, "Groceries", true)
	require.NoError(t, err)
	assert.Equal(t, common.CategoryGroceries, res.Expense.Category)
	require.NotNil(t, res.Rule)
	assert.Equal(t, "walmart", res.Rule.MerchantName)
	assert.Equal(t, 1, res.SimilarUpdated)
	assert.Equal(t, 1, learner.n)

	got, err := repo.Get(ctx, userID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, common.CategoryGroceries, got.Category)

	got, err = repo.Get(ctx, userID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, common.CategoryUncategorized, got.Category)

	res, err = svc.UpdateExpenseCategory(ctx, userID, second.ID, "Groceries", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rule.Confidence)
	assert.Equal(t, 0, res.SimilarUpdated)
	assert.Len(t, rules.rules, 1)
}

func TestUpdateExpenseCategory_Errors(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpdateExpenseCategory(ctx, uuid.New(), uuid.New(), "Nope", false)
	assert.ErrorIs(t, err, common.ErrInvalidCategory)

	_, err = svc.UpdateExpenseCategory(ctx, uuid.New(), uuid.New(), "Rent", false)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateExpense_OtherUsersExpenseIsNotFound(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()
	e := &repository.Expense{UserID: owner, Description: "Rent", Category: common.CategoryRent, Type: common.TypeExpense}
	require.NoError(t, repo.Create(ctx, e))

	desc := "Rent March"
	_, err := svc.UpdateExpense(ctx, uuid.New(), e.ID, UpdateParams{Description: &desc})
	assert.ErrorIs(t, err, common.ErrNotFound)

	updated, err := svc.UpdateExpense(ctx, owner, e.ID, UpdateParams{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Rent March", updated.Description)
}

func TestListExpenses_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.ListExpenses(ctx, uuid.New(), repository.ListFilter{Category: "Cars"})
	assert.ErrorIs(t, err, common.ErrInvalidCategory)

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, _, err = svc.ListExpenses(ctx, uuid.New(), repository.ListFilter{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, common.ErrInvalidDateRange)
}

func TestDeleteMerchantRule_NormalizesName(t *testing.T) {
	svc, _, rules, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	_, err := rules.UpsertRule(ctx, userID, "amazon pay", common.CategoryShopping)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMerchantRule(ctx, userID, "UPI-AMAZON PAY-12345678"))
	assert.Empty(t, rules.rules)

	assert.ErrorIs(t, svc.DeleteMerchantRule(ctx, userID, "!!!"), common.ErrNotFound)
}

func TestSuggestCategory_FlagsAmbiguousText(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	s, err := svc.SuggestCategory(ctx, uuid.New(), "Rahul Kumar", decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, s.IsAmbiguous)
	assert.Equal(t, common.CategoryTransport, s.Category)

	s, err = svc.SuggestCategory(ctx, uuid.New(), "UBER TRIP BANGALORE", decimal.Zero)
	require.NoError(t, err)
	assert.False(t, s.IsAmbiguous)
}

func TestListCategories_ReturnsCopy(t *testing.T) {
	svc, _, _, _ := newTestService()
	cats := svc.ListCategories()
	cats[0] = "changed"
	assert.Equal(t, common.CategoryGroceries, common.Categories[0])
}
