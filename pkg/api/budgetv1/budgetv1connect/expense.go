package budgetv1connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// ExpenseServiceClient is a client for the budget.v1.ExpenseService service.
type ExpenseServiceClient interface {
	CreateExpense(context.Context, *connect.Request[v1.CreateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[v1.ListExpensesRequest]) (*connect.Response[v1.ListExpensesResponse], error)
	GetExpense(context.Context, *connect.Request[v1.GetExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[v1.UpdateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[v1.DeleteExpenseRequest]) (*connect.Response[v1.DeleteExpenseResponse], error)
	UpdateExpenseCategory(context.Context, *connect.Request[v1.UpdateExpenseCategoryRequest]) (*connect.Response[v1.UpdateExpenseCategoryResponse], error)
	ListMerchantRules(context.Context, *connect.Request[v1.ListMerchantRulesRequest]) (*connect.Response[v1.ListMerchantRulesResponse], error)
	DeleteMerchantRule(context.Context, *connect.Request[v1.DeleteMerchantRuleRequest]) (*connect.Response[v1.DeleteMerchantRuleResponse], error)
	SuggestCategory(context.Context, *connect.Request[v1.SuggestCategoryRequest]) (*connect.Response[v1.SuggestCategoryResponse], error)
	ListCategories(context.Context, *connect.Request[v1.ListCategoriesRequest]) (*connect.Response[v1.ListCategoriesResponse], error)
}

// NewExpenseServiceClient constructs a client for the budget.v1.ExpenseService service.
// baseURL is the server root, for example https://api.example.com.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &expenseServiceClient{
		createExpense: connect.NewClient[v1.CreateExpenseRequest, v1.ExpenseResponse](
			httpClient,
			baseURL+v1.ExpenseServiceCreateExpenseProcedure,
			opts...,
		),
		listExpenses: connect.NewClient[v1.ListExpensesRequest, v1.ListExpensesResponse](
			httpClient,
			baseURL+v1.ExpenseServiceListExpensesProcedure,
			opts...,
		),
		getExpense: connect.NewClient[v1.GetExpenseRequest, v1.ExpenseResponse](
			httpClient,
			baseURL+v1.ExpenseServiceGetExpenseProcedure,
			opts...,
		),
		updateExpense: connect.NewClient[v1.UpdateExpenseRequest, v1.ExpenseResponse](
			httpClient,
			baseURL+v1.ExpenseServiceUpdateExpenseProcedure,
			opts...,
		),
		deleteExpense: connect.NewClient[v1.DeleteExpenseRequest, v1.DeleteExpenseResponse](
			httpClient,
			baseURL+v1.ExpenseServiceDeleteExpenseProcedure,
			opts...,
		),
		updateExpenseCategory: connect.NewClient[v1.UpdateExpenseCategoryRequest, v1.UpdateExpenseCategoryResponse](
			httpClient,
			baseURL+v1.ExpenseServiceUpdateExpenseCategoryProcedure,
			opts...,
		),
		listMerchantRules: connect.NewClient[v1.ListMerchantRulesRequest, v1.ListMerchantRulesResponse](
			httpClient,
			baseURL+v1.ExpenseServiceListMerchantRulesProcedure,
			opts...,
		),
		deleteMerchantRule: connect.NewClient[v1.DeleteMerchantRuleRequest, v1.DeleteMerchantRuleResponse](
			httpClient,
			baseURL+v1.ExpenseServiceDeleteMerchantRuleProcedure,
			opts...,
		),
		suggestCategory: connect.NewClient[v1.SuggestCategoryRequest, v1.SuggestCategoryResponse](
			httpClient,
			baseURL+v1.ExpenseServiceSuggestCategoryProcedure,
			opts...,
		),
		listCategories: connect.NewClient[v1.ListCategoriesRequest, v1.ListCategoriesResponse](
			httpClient,
			baseURL+v1.ExpenseServiceListCategoriesProcedure,
			opts...,
		),
	}
}

type expenseServiceClient struct {
	createExpense         *connect.Client[v1.CreateExpenseRequest, v1.ExpenseResponse]
	listExpenses          *connect.Client[v1.ListExpensesRequest, v1.ListExpensesResponse]
	getExpense            *connect.Client[v1.GetExpenseRequest, v1.ExpenseResponse]
	updateExpense         *connect.Client[v1.UpdateExpenseRequest, v1.ExpenseResponse]
	deleteExpense         *connect.Client[v1.DeleteExpenseRequest, v1.DeleteExpenseResponse]
	updateExpenseCategory *connect.Client[v1.UpdateExpenseCategoryRequest, v1.UpdateExpenseCategoryResponse]
	listMerchantRules     *connect.Client[v1.ListMerchantRulesRequest, v1.ListMerchantRulesResponse]
	deleteMerchantRule    *connect.Client[v1.DeleteMerchantRuleRequest, v1.DeleteMerchantRuleResponse]
	suggestCategory       *connect.Client[v1.SuggestCategoryRequest, v1.SuggestCategoryResponse]
	listCategories        *connect.Client[v1.ListCategoriesRequest, v1.ListCategoriesResponse]
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[v1.CreateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[v1.ListExpensesRequest]) (*connect.Response[v1.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[v1.GetExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[v1.UpdateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[v1.DeleteExpenseRequest]) (*connect.Response[v1.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) UpdateExpenseCategory(ctx context.Context, req *connect.Request[v1.UpdateExpenseCategoryRequest]) (*connect.Response[v1.UpdateExpenseCategoryResponse], error) {
	return c.updateExpenseCategory.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListMerchantRules(ctx context.Context, req *connect.Request[v1.ListMerchantRulesRequest]) (*connect.Response[v1.ListMerchantRulesResponse], error) {
	return c.listMerchantRules.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteMerchantRule(ctx context.Context, req *connect.Request[v1.DeleteMerchantRuleRequest]) (*connect.Response[v1.DeleteMerchantRuleResponse], error) {
	return c.deleteMerchantRule.CallUnary(ctx, req)
}

func (c *expenseServiceClient) SuggestCategory(ctx context.Context, req *connect.Request[v1.SuggestCategoryRequest]) (*connect.Response[v1.SuggestCategoryResponse], error) {
	return c.suggestCategory.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListCategories(ctx context.Context, req *connect.Request[v1.ListCategoriesRequest]) (*connect.Response[v1.ListCategoriesResponse], error) {
	return c.listCategories.CallUnary(ctx, req)
}

// ExpenseServiceHandler manages stored expenses and learned merchant rules.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[v1.CreateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[v1.ListExpensesRequest]) (*connect.Response[v1.ListExpensesResponse], error)
	GetExpense(context.Context, *connect.Request[v1.GetExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[v1.UpdateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[v1.DeleteExpenseRequest]) (*connect.Response[v1.DeleteExpenseResponse], error)
	UpdateExpenseCategory(context.Context, *connect.Request[v1.UpdateExpenseCategoryRequest]) (*connect.Response[v1.UpdateExpenseCategoryResponse], error)
	ListMerchantRules(context.Context, *connect.Request[v1.ListMerchantRulesRequest]) (*connect.Response[v1.ListMerchantRulesResponse], error)
	DeleteMerchantRule(context.Context, *connect.Request[v1.DeleteMerchantRuleRequest]) (*connect.Response[v1.DeleteMerchantRuleResponse], error)
	SuggestCategory(context.Context, *connect.Request[v1.SuggestCategoryRequest]) (*connect.Response[v1.SuggestCategoryResponse], error)
	ListCategories(context.Context, *connect.Request[v1.ListCategoriesRequest]) (*connect.Response[v1.ListCategoriesResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createExpenseHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceCreateExpenseProcedure,
		svc.CreateExpense,
		opts...,
	)
	listExpensesHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceListExpensesProcedure,
		svc.ListExpenses,
		opts...,
	)
	getExpenseHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceGetExpenseProcedure,
		svc.GetExpense,
		opts...,
	)
	updateExpenseHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceUpdateExpenseProcedure,
		svc.UpdateExpense,
		opts...,
	)
	deleteExpenseHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceDeleteExpenseProcedure,
		svc.DeleteExpense,
		opts...,
	)
	updateExpenseCategoryHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceUpdateExpenseCategoryProcedure,
		svc.UpdateExpenseCategory,
		opts...,
	)
	listMerchantRulesHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceListMerchantRulesProcedure,
		svc.ListMerchantRules,
		opts...,
	)
	deleteMerchantRuleHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceDeleteMerchantRuleProcedure,
		svc.DeleteMerchantRule,
		opts...,
	)
	suggestCategoryHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceSuggestCategoryProcedure,
		svc.SuggestCategory,
		opts...,
	)
	listCategoriesHandler := connect.NewUnaryHandler(
		v1.ExpenseServiceListCategoriesProcedure,
		svc.ListCategories,
		opts...,
	)
	return "/" + v1.ExpenseServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v1.ExpenseServiceCreateExpenseProcedure:
			createExpenseHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceListExpensesProcedure:
			listExpensesHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceGetExpenseProcedure:
			getExpenseHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceUpdateExpenseProcedure:
			updateExpenseHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceDeleteExpenseProcedure:
			deleteExpenseHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceUpdateExpenseCategoryProcedure:
			updateExpenseCategoryHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceListMerchantRulesProcedure:
			listMerchantRulesHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceDeleteMerchantRuleProcedure:
			deleteMerchantRuleHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceSuggestCategoryProcedure:
			suggestCategoryHandler.ServeHTTP(w, r)
		case v1.ExpenseServiceListCategoriesProcedure:
			listCategoriesHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedExpenseServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedExpenseServiceHandler struct{}

func (UnimplementedExpenseServiceHandler) CreateExpense(context.Context, *connect.Request[v1.CreateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.CreateExpense is not implemented"))
}

func (UnimplementedExpenseServiceHandler) ListExpenses(context.Context, *connect.Request[v1.ListExpensesRequest]) (*connect.Response[v1.ListExpensesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.ListExpenses is not implemented"))
}

func (UnimplementedExpenseServiceHandler) GetExpense(context.Context, *connect.Request[v1.GetExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.GetExpense is not implemented"))
}

func (UnimplementedExpenseServiceHandler) UpdateExpense(context.Context, *connect.Request[v1.UpdateExpenseRequest]) (*connect.Response[v1.ExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.UpdateExpense is not implemented"))
}

func (UnimplementedExpenseServiceHandler) DeleteExpense(context.Context, *connect.Request[v1.DeleteExpenseRequest]) (*connect.Response[v1.DeleteExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.DeleteExpense is not implemented"))
}

func (UnimplementedExpenseServiceHandler) UpdateExpenseCategory(context.Context, *connect.Request[v1.UpdateExpenseCategoryRequest]) (*connect.Response[v1.UpdateExpenseCategoryResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.UpdateExpenseCategory is not implemented"))
}

func (UnimplementedExpenseServiceHandler) ListMerchantRules(context.Context, *connect.Request[v1.ListMerchantRulesRequest]) (*connect.Response[v1.ListMerchantRulesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.ListMerchantRules is not implemented"))
}

func (UnimplementedExpenseServiceHandler) DeleteMerchantRule(context.Context, *connect.Request[v1.DeleteMerchantRuleRequest]) (*connect.Response[v1.DeleteMerchantRuleResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.DeleteMerchantRule is not implemented"))
}

func (UnimplementedExpenseServiceHandler) SuggestCategory(context.Context, *connect.Request[v1.SuggestCategoryRequest]) (*connect.Response[v1.SuggestCategoryResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.SuggestCategory is not implemented"))
}

func (UnimplementedExpenseServiceHandler) ListCategories(context.Context, *connect.Request[v1.ListCategoriesRequest]) (*connect.Response[v1.ListCategoriesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ExpenseService.ListCategories is not implemented"))
}
