package models

import "github.com/golang-jwt/jwt/v5"

// Token types
const (
	TokenTypeAccess = "access"
	TokenTypeReset  = "reset"
)

// TokenClaims are carried by session tokens. Subject holds the user's email.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ResetClaims are carried by password reset tokens
type ResetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}
