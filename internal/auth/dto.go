package auth

import (
	"time"

	"github.com/loomline/storefront-backend/internal/users"
)

// RegisterRequest is the payload for creating a customer account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// LoginRequest carries the credentials for an email/password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by login and register. The session id never appears
// in a response body; the controller moves it into the session cookie.
type AuthResult struct {
	SessionID string         `json:"-"`
	User      *users.UserDTO `json:"user"`
}

// TokenResult carries a freshly minted bearer token for non-browser clients.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
