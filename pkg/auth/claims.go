package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// SessionID becomes the jti claim so bearer tokens die with their session.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	SessionID string
}

// AccessTokenClaims represents the typed JWT issued to API clients.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
