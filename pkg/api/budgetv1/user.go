package budgetv1

import (
	"strings"
)

// BudgetProfile holds the settings collected during onboarding.
type BudgetProfile struct {
	Currency            string `json:"currency"`
	MonthlyIncome       string `json:"monthly_income"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}

type GetProfileRequest struct{}

// ProfileResponse is returned by every UserService call.
type ProfileResponse struct {
	User    *User          `json:"user"`
	Profile *BudgetProfile `json:"profile"`
}

// UpdateProfileRequest changes only the fields that are set.
type UpdateProfileRequest struct {
	DisplayName   *string `json:"display_name,omitempty"`
	Currency      *string `json:"currency,omitempty"`
	MonthlyIncome *string `json:"monthly_income,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Currency != nil {
		c := strings.TrimSpace(*r.Currency)
		if len(c) != 3 {
			return invalid("currency must be a three letter ISO code")
		}
	}
	if r.MonthlyIncome != nil {
		d, err := ParseAmount(*r.MonthlyIncome)
		if err != nil {
			return err
		}
		if d.IsNegative() {
			return invalid("monthly_income must not be negative")
		}
	}
	return nil
}

type CompleteOnboardingRequest struct{}
