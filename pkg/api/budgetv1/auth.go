package budgetv1

import (
	"net/mail"
)

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// AuthTokens is an access and refresh token pair.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if err := validEmail(r.Email); err != nil {
		return err
	}
	return required("password", r.Password)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if err := validEmail(r.Email); err != nil {
		return err
	}
	return required("password", r.Password)
}

// AuthResponse is returned by Register, Login and RefreshToken.
type AuthResponse struct {
	User   *User       `json:"user,omitempty"`
	Tokens *AuthTokens `json:"tokens"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshTokenRequest) Validate() error { return required("refresh_token", r.RefreshToken) }

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *LogoutRequest) Validate() error { return required("refresh_token", r.RefreshToken) }

type LogoutResponse struct{}

type GetMeRequest struct{}

type GetMeResponse struct {
	User *User `json:"user"`
}

func validEmail(email string) error {
	if err := required("email", email); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email %q is not valid", email)
	}
	return nil
}
