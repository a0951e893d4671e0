// Package handler implements the ExpenseService Connect RPC handlers.
package handler

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/expense/service"
	importrepo "github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
)

var _ budgetv1connect.ExpenseServiceHandler = (*ExpenseHandler)(nil)

// ExpenseHandler implements the ExpenseService Connect handlers.
type ExpenseHandler struct {
	svc *service.ExpenseService
}

// NewExpenseHandler constructs a new handler.
func NewExpenseHandler(svc *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{svc: svc}
}

func (h *ExpenseHandler) CreateExpense(
	ctx context.Context,
	req *connect.Request[v1.CreateExpenseRequest],
) (*connect.Response[v1.ExpenseResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	date, err := v1.ParseDate(req.Msg.Date)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	amount, err := v1.ParseAmount(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	e, err := h.svc.CreateExpense(ctx, userID, service.CreateParams{
		Date:          date,
		Description:   req.Msg.Description,
		Amount:        amount,
		Category:      req.Msg.Category,
		Type:          req.Msg.Type,
		PaymentMethod: req.Msg.PaymentMethod,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.ExpenseResponse{Expense: toExpense(e)}), nil
}

func (h *ExpenseHandler) ListExpenses(
	ctx context.Context,
	req *connect.Request[v1.ListExpensesRequest],
) (*connect.Response[v1.ListExpensesResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	f := repository.ListFilter{
		Category: req.Msg.Category,
		Limit:    req.Msg.Limit,
		Offset:   req.Msg.Offset,
	}
	if req.Msg.StartDate != "" {
		d, err := v1.ParseDate(req.Msg.StartDate)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		f.StartDate = &d
	}
	if req.Msg.EndDate != "" {
		d, err := v1.ParseDate(req.Msg.EndDate)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		f.EndDate = &d
	}

	rows, total, err := h.svc.ListExpenses(ctx, userID, f)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*v1.Expense, 0, len(rows))
	for _, e := range rows {
		out = append(out, toExpense(e))
	}
	return connect.NewResponse(&v1.ListExpensesResponse{Expenses: out, Total: total}), nil
}

func (h *ExpenseHandler) GetExpense(
	ctx context.Context,
	req *connect.Request[v1.GetExpenseRequest],
) (*connect.Response[v1.ExpenseResponse], error) {
	userID, id, err := userAndExpense(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	e, err := h.svc.GetExpense(ctx, userID, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.ExpenseResponse{Expense: toExpense(e)}), nil
}

func (h *ExpenseHandler) UpdateExpense(
	ctx context.Context,
	req *connect.Request[v1.UpdateExpenseRequest],
) (*connect.Response[v1.ExpenseResponse], error) {
	userID, id, err := userAndExpense(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}

	p := service.UpdateParams{
		Description:   req.Msg.Description,
		Type:          req.Msg.Type,
		PaymentMethod: req.Msg.PaymentMethod,
	}
	if req.Msg.Date != nil {
		d, err := v1.ParseDate(*req.Msg.Date)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		p.Date = &d
	}
	if req.Msg.Amount != nil {
		a, err := v1.ParseAmount(*req.Msg.Amount)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		p.Amount = &a
	}

	e, err := h.svc.UpdateExpense(ctx, userID, id, p)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.ExpenseResponse{Expense: toExpense(e)}), nil
}

func (h *ExpenseHandler) DeleteExpense(
	ctx context.Context,
	req *connect.Request[v1.DeleteExpenseRequest],
) (*connect.Response[v1.DeleteExpenseResponse], error) {
	userID, id, err := userAndExpense(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteExpense(ctx, userID, id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.DeleteExpenseResponse{}), nil
}

func (h *ExpenseHandler) UpdateExpenseCategory(
	ctx context.Context,
	req *connect.Request[v1.UpdateExpenseCategoryRequest],
) (*connect.Response[v1.UpdateExpenseCategoryResponse], error) {
	userID, id, err := userAndExpense(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}

	res, err := h.svc.UpdateExpenseCategory(ctx, userID, id, req.Msg.Category, req.Msg.ApplyToSimilar)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := &v1.UpdateExpenseCategoryResponse{
		Expense:        toExpense(res.Expense),
		SimilarUpdated: res.SimilarUpdated,
	}
	if res.Rule != nil {
		out.Rule = &v1.LearnedRule{
			MerchantName: res.Rule.MerchantName,
			Category:     res.Rule.Category,
			Confidence:   res.Rule.Confidence,
		}
	}
	return connect.NewResponse(out), nil
}

func (h *ExpenseHandler) ListMerchantRules(
	ctx context.Context,
	_ *connect.Request[v1.ListMerchantRulesRequest],
) (*connect.Response[v1.ListMerchantRulesResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := h.svc.ListMerchantRules(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := make([]*v1.MerchantRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, toMerchantRule(r))
	}
	return connect.NewResponse(&v1.ListMerchantRulesResponse{Rules: out}), nil
}

func (h *ExpenseHandler) DeleteMerchantRule(
	ctx context.Context,
	req *connect.Request[v1.DeleteMerchantRuleRequest],
) (*connect.Response[v1.DeleteMerchantRuleResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteMerchantRule(ctx, userID, req.Msg.MerchantName); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.DeleteMerchantRuleResponse{}), nil
}

func (h *ExpenseHandler) SuggestCategory(
	ctx context.Context,
	req *connect.Request[v1.SuggestCategoryRequest],
) (*connect.Response[v1.SuggestCategoryResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	amount := decimal.Zero
	if req.Msg.Amount != "" {
		if amount, err = v1.ParseAmount(req.Msg.Amount); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
	}

	s, err := h.svc.SuggestCategory(ctx, userID, req.Msg.Description, amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.SuggestCategoryResponse{
		Category:     s.Category,
		Confidence:   string(s.Confidence),
		Reasoning:    s.Reasoning,
		Alternatives: s.Alternatives,
		Source:       s.Source,
		IsAmbiguous:  s.IsAmbiguous,
	}), nil
}

func (h *ExpenseHandler) ListCategories(
	context.Context,
	*connect.Request[v1.ListCategoriesRequest],
) (*connect.Response[v1.ListCategoriesResponse], error) {
	return connect.NewResponse(&v1.ListCategoriesResponse{Categories: h.svc.ListCategories()}), nil
}

func authenticatedUser(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInternal, errors.New("invalid user ID in context"))
	}
	return userID, nil
}

func userAndExpense(ctx context.Context, rawID string) (uuid.UUID, uuid.UUID, error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid expense id: %w", err))
	}
	return userID, id, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, common.ErrInvalidCategory), errors.Is(err, common.ErrInvalidDateRange):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toExpense(e *repository.Expense) *v1.Expense {
	out := &v1.Expense{
		ID:          e.ID.String(),
		Date:        v1.FormatDate(e.Date),
		Description: e.Description,
		Amount:      e.Amount.StringFixed(2),
		Category:    e.Category,
		Type:        e.Type,
		CreatedAt:   v1.FormatTime(e.CreatedAt),
		UpdatedAt:   v1.FormatTime(e.UpdatedAt),
	}
	if e.PaymentMethod != nil {
		out.PaymentMethod = *e.PaymentMethod
	}
	return out
}

func toMerchantRule(r *importrepo.MerchantRule) *v1.MerchantRule {
	return &v1.MerchantRule{
		MerchantName: r.MerchantName,
		Category:     r.Category,
		Confidence:   r.Confidence,
		UpdatedAt:    v1.FormatTime(r.UpdatedAt),
	}
}
