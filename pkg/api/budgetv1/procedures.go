package budgetv1

// Fully-qualified service names.
const (
	AuthServiceName    = "budget.v1.AuthService"
	UserServiceName    = "budget.v1.UserService"
	ImportServiceName  = "budget.v1.ImportService"
	ExpenseServiceName = "budget.v1.ExpenseService"
)

// Procedure paths.
const (
	AuthServiceRegisterProcedure     = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure        = "/" + AuthServiceName + "/Login"
	AuthServiceRefreshTokenProcedure = "/" + AuthServiceName + "/RefreshToken"
	AuthServiceLogoutProcedure       = "/" + AuthServiceName + "/Logout"
	AuthServiceGetMeProcedure        = "/" + AuthServiceName + "/GetMe"

	UserServiceGetProfileProcedure         = "/" + UserServiceName + "/GetProfile"
	UserServiceUpdateProfileProcedure      = "/" + UserServiceName + "/UpdateProfile"
	UserServiceCompleteOnboardingProcedure = "/" + UserServiceName + "/CompleteOnboarding"

	ImportServiceUploadStatementProcedure    = "/" + ImportServiceName + "/UploadStatement"
	ImportServiceSelectDateRangeProcedure    = "/" + ImportServiceName + "/SelectDateRange"
	ImportServiceImportTransactionsProcedure = "/" + ImportServiceName + "/ImportTransactions"
	ImportServiceCancelUploadProcedure       = "/" + ImportServiceName + "/CancelUpload"
	ImportServiceListImportJobsProcedure     = "/" + ImportServiceName + "/ListImportJobs"

	ExpenseServiceCreateExpenseProcedure         = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceListExpensesProcedure          = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceGetExpenseProcedure            = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceUpdateExpenseProcedure         = "/" + ExpenseServiceName + "/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure         = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceUpdateExpenseCategoryProcedure = "/" + ExpenseServiceName + "/UpdateExpenseCategory"
	ExpenseServiceListMerchantRulesProcedure     = "/" + ExpenseServiceName + "/ListMerchantRules"
	ExpenseServiceDeleteMerchantRuleProcedure    = "/" + ExpenseServiceName + "/DeleteMerchantRule"
	ExpenseServiceSuggestCategoryProcedure       = "/" + ExpenseServiceName + "/SuggestCategory"
	ExpenseServiceListCategoriesProcedure        = "/" + ExpenseServiceName + "/ListCategories"
)
