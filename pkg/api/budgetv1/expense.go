package budgetv1

const (
	TransactionTypeExpense = "expense"
	TransactionTypeIncome  = "income"
)

type Expense struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	PaymentMethod string `json:"payment_method,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func validType(t string) error {
	switch t {
	case "", TransactionTypeExpense, TransactionTypeIncome:
		return nil
	default:
		return invalid("type must be %q or %q", TransactionTypeExpense, TransactionTypeIncome)
	}
}

func positiveAmount(s string) error {
	d, err := ParseAmount(s)
	if err != nil {
		return err
	}
	if !d.IsPositive() {
		return invalid("amount must be positive")
	}
	return nil
}

// CreateExpenseRequest leaves Category empty to have it classified.
type CreateExpenseRequest struct {
	Date          string `json:"date"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Category      string `json:"category,omitempty"`
	Type          string `json:"type,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

func (r *CreateExpenseRequest) Validate() error {
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if err := required("description", r.Description); err != nil {
		return err
	}
	if err := positiveAmount(r.Amount); err != nil {
		return err
	}
	return validType(r.Type)
}

type ExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Category  string `json:"category,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

func (r *ListExpensesRequest) Validate() error {
	if err := optionalDate("start_date", r.StartDate); err != nil {
		return err
	}
	if err := optionalDate("end_date", r.EndDate); err != nil {
		return err
	}
	if r.Limit < 0 || r.Offset < 0 {
		return invalid("limit and offset must not be negative")
	}
	return nil
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
	Total    int        `json:"total"`
}

type GetExpenseRequest struct {
	ID string `json:"id"`
}

func (r *GetExpenseRequest) Validate() error { return required("id", r.ID) }

// UpdateExpenseRequest changes only the fields that are set.
type UpdateExpenseRequest struct {
	ID            string  `json:"id"`
	Date          *string `json:"date,omitempty"`
	Description   *string `json:"description,omitempty"`
	Amount        *string `json:"amount,omitempty"`
	Type          *string `json:"type,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
}

func (r *UpdateExpenseRequest) Validate() error {
	if err := required("id", r.ID); err != nil {
		return err
	}
	if r.Date != nil {
		if _, err := ParseDate(*r.Date); err != nil {
			return err
		}
	}
	if r.Description != nil {
		if err := required("description", *r.Description); err != nil {
			return err
		}
	}
	if r.Amount != nil {
		if err := positiveAmount(*r.Amount); err != nil {
			return err
		}
	}
	if r.Type != nil {
		return validType(*r.Type)
	}
	return nil
}

type DeleteExpenseRequest struct {
	ID string `json:"id"`
}

func (r *DeleteExpenseRequest) Validate() error { return required("id", r.ID) }

type DeleteExpenseResponse struct{}

type UpdateExpenseCategoryRequest struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	// ApplyToSimilar recategorizes the user's other expenses from the same merchant.
	ApplyToSimilar bool `json:"apply_to_similar,omitempty"`
}

func (r *UpdateExpenseCategoryRequest) Validate() error {
	if err := required("id", r.ID); err != nil {
		return err
	}
	return required("category", r.Category)
}

type UpdateExpenseCategoryResponse struct {
	Expense        *Expense     `json:"expense"`
	Rule           *LearnedRule `json:"rule,omitempty"`
	SimilarUpdated int          `json:"similar_updated"`
}

type ListMerchantRulesRequest struct{}

type MerchantRule struct {
	MerchantName string `json:"merchant_name"`
	Category     string `json:"category"`
	Confidence   int    `json:"confidence"`
	UpdatedAt    string `json:"updated_at"`
}

type ListMerchantRulesResponse struct {
	Rules []*MerchantRule `json:"rules"`
}

type DeleteMerchantRuleRequest struct {
	MerchantName string `json:"merchant_name"`
}

func (r *DeleteMerchantRuleRequest) Validate() error {
	return required("merchant_name", r.MerchantName)
}

type DeleteMerchantRuleResponse struct{}

type SuggestCategoryRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount,omitempty"`
}

func (r *SuggestCategoryRequest) Validate() error {
	if err := required("description", r.Description); err != nil {
		return err
	}
	if r.Amount != "" {
		if _, err := ParseAmount(r.Amount); err != nil {
			return err
		}
	}
	return nil
}

type SuggestCategoryResponse struct {
	Category     string   `json:"category"`
	Confidence   string   `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	Alternatives []string `json:"alternatives,omitempty"`
	Source       string   `json:"source"`
	IsAmbiguous  bool     `json:"is_ambiguous"`
}

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []string `json:"categories"`
}
