package models

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Roles stored in the profiles table
const (
	RoleUser       = "usuario"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// DefaultRole is assigned when a profile has no role or cannot be read
const DefaultRole = RoleUser

// IsAdminRole reports whether role may use the administrative endpoints
func IsAdminRole(role string) bool {
	return slices.Contains([]string{RoleAdmin, RoleSuperAdmin}, role)
}

// TokenClaims are the claims of an access token issued by the identity provider
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"` // Provider role ("authenticated"), not the profile role
	jwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *TokenClaims) UserID() string {
	return c.Subject
}
