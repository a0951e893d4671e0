package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserProfile is the budget profile of a user: identity plus the settings
// the onboarding wizard collects.
type UserProfile struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	Email               string          `json:"email" db:"email"`
	Username            string          `json:"username" db:"username"`
	DisplayName         *string         `json:"display_name,omitempty" db:"display_name"`
	Currency            string          `json:"currency" db:"currency"`
	MonthlyIncome       decimal.Decimal `json:"monthly_income" db:"monthly_income"`
	OnboardingCompleted bool            `json:"onboarding_completed" db:"onboarding_completed"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	LastLoginAt         *time.Time      `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// UpdateProfileParams holds the mutable profile fields; nil means unchanged.
type UpdateProfileParams struct {
	DisplayName   *string          `json:"display_name,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income,omitempty"`
}
