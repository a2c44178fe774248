package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes issued by this service.
const (
	ScopePasswordSetup = "password:setup"
	ScopeAdmin         = "admin:read admin:write members:read members:write"
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func newToken(email, role, scope, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"membership-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// NewSetupToken mints the short-lived token that lets a freshly confirmed
// member set their password.
func NewSetupToken(email, secret string, ttl time.Duration) (string, error) {
	return newToken(email, "member", ScopePasswordSetup, secret, ttl)
}

func NewAdminToken(email, secret string, ttl time.Duration) (string, error) {
	return newToken(email, "admin", ScopeAdmin, secret, ttl)
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ParseSetupToken validates a password-setup token and returns the email it
// was minted for.
func ParseSetupToken(tokenString, secret string) (string, error) {
	claims, err := Parse(tokenString, secret)
	if err != nil {
		return "", err
	}
	if claims.Scope != ScopePasswordSetup {
		return "", errors.New("invalid token scope")
	}
	return claims.Email, nil
}
