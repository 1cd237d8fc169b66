package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role distinguishes storefront customers from back-office operators.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// AccessTokenPayload carries the identity fields minted into a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   Role
	JTI    string
}

// AccessTokenClaims is the JWT claim set carried by API bearer tokens.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	Role   Role      `json:"role"`
	jwt.RegisteredClaims
}
