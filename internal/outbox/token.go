package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer and Audience identify sync tokens.
const (
	Issuer   = "roleplanner-api"
	Audience = "roleplanner-syncd"
)

// TokenSource supplies the bearer credential for each batch request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// JWTSource mints short-lived HS256 tokens signed with a shared secret.
type JWTSource struct {
	secret  []byte
	subject string
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTSource returns a TokenSource for subject (the installation id).
func NewJWTSource(secret, subject string, ttl time.Duration) *JWTSource {
	return &JWTSource{secret: []byte(secret), subject: subject, ttl: ttl, now: time.Now}
}

func (s *JWTSource) Token(_ context.Context) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("outbox.JWTSource.Token: no signing secret configured")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   s.subject,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("outbox.JWTSource.Token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a sync token against secret and returns its subject.
func VerifyToken(secret, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("outbox.VerifyToken: %w", err)
	}
	return claims.Subject, nil
}
