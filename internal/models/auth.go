package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the auth service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
