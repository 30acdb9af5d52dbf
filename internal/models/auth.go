package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims represents the claims carried by admin access tokens. Tokens
// are issued by the central identity service; this service only verifies
// them.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
