// Package identity issues the mail-account access tokens requested by authenticateGmail.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartdraft/config"
	"smartdraft/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Scope granted to issued tokens
const ComposeScope = "gmail.compose"

// TokenProvider hands out an opaque access token, or fails with an auth error
type TokenProvider interface {
	Token(ctx context.Context, interactive bool) (string, error)
}

// Verifier checks a token before it is handed out. JWTProvider implements it.
type Verifier interface {
	Verify(tokenString string) (*Claims, error)
}

// Claims carried by issued tokens
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTProvider signs HS256 tokens for the configured subject
type JWTProvider struct {
	secret  []byte
	subject string
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTProvider builds a provider from the [identity] config section.
// An empty secret yields a provider that denies every request.
func NewJWTProvider(cfg config.IdentityConfig) *JWTProvider {
	return &JWTProvider{
		secret:  []byte(cfg.Secret),
		subject: cfg.Subject,
		ttl:     cfg.TokenTTL(),
		now:     time.Now,
	}
}

func (p *JWTProvider) Token(ctx context.Context, interactive bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", utils.AuthError("Gmail authentication failed", err)
	}
	if len(p.secret) == 0 {
		return "", utils.AuthError("Gmail authentication failed", errors.New("identity provider not configured"))
	}
	if !interactive {
		return "", utils.AuthError("Gmail authentication failed", errors.New("user interaction required"))
	}

	now := p.now()
	claims := Claims{
		Scope: ComposeScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.subject,
			Issuer:    "smartdraft",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", utils.AuthError("Gmail authentication failed", err)
	}
	return token, nil
}

// Verify parses and validates a token issued by this provider
func (p *JWTProvider) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, utils.AuthError("invalid token", err)
	}
	if !token.Valid {
		return nil, utils.AuthError("invalid token", nil)
	}
	return claims, nil
}
