package model

import "time"

// User represents an account as returned by /auth/me
type User struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	TermsAcceptedAt   *time.Time `json:"terms_accepted_at,omitempty"`
	PrivacyAcceptedAt *time.Time `json:"privacy_accepted_at,omitempty"`
}

// HasAcceptedTerms returns true once both terms and privacy policy are accepted
func (u *User) HasAcceptedTerms() bool {
	return u.TermsAcceptedAt != nil && u.PrivacyAcceptedAt != nil
}

// DisplayName prefers the username and falls back to the email
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Credentials are submitted on register and login. Login only uses Email
// and Password.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
