package service

import (
	"context"
	"time"

	"github.com/clublane/membership/pkg/auth"
)

// TokenIssuer mints the temporary credential a confirmed member uses to set
// their password. Calls are bounded by the caller's context.
type TokenIssuer interface {
	GenerateTemporaryToken(ctx context.Context, email string) (token string, ttl time.Duration, err error)
}

type jwtTokenIssuer struct {
	secret string
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) TokenIssuer {
	return &jwtTokenIssuer{secret: secret, ttl: ttl}
}

func (i *jwtTokenIssuer) GenerateTemporaryToken(ctx context.Context, email string) (string, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	token, err := auth.NewSetupToken(email, i.secret, i.ttl)
	if err != nil {
		return "", 0, err
	}

	return token, i.ttl, nil
}
