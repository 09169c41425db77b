package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// PrincipalPayload captures the identity provider's view of a signed-in user.
type PrincipalPayload struct {
	Email       string
	DisplayName string
	JTI         string
}

// PrincipalClaims represents the typed JWT presented by clients.
type PrincipalClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
