package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role identifies the privilege carried by a token.
type Role string

// RoleAdmin is the only role issued; participants act anonymously.
const RoleAdmin Role = "ADMIN"

// AdminLoginRequest holds the shared administrator password.
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
