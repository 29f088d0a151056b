package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/outbox"
)

// TestJWTSource_RoundTrip verifies a minted token verifies with the same
// secret and carries the installation subject.
func TestJWTSource_RoundTrip(t *testing.T) {
	tok, err := outbox.NewJWTSource(secret, "install-42", time.Minute).Token(context.Background())
	require.NoError(t, err)

	sub, err := outbox.VerifyToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "install-42", sub)
}

// TestJWTSource_NoSecret verifies an unconfigured source refuses to mint
// unsigned credentials.
func TestJWTSource_NoSecret(t *testing.T) {
	_, err := outbox.NewJWTSource("", "install-42", time.Minute).Token(context.Background())
	assert.Error(t, err)
}

// TestVerifyToken_Rejects covers tokens the receiver must refuse.
func TestVerifyToken_Rejects(t *testing.T) {
	now := time.Now()
	sign := func(claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Issuer:    outbox.Issuer,
		Subject:   "install-42",
		Audience:  jwt.ClaimStrings{outbox.Audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}
	wrongIssuer := valid
	wrongIssuer.Issuer = "impostor"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(expired)},
		{"wrong audience", sign(wrongAudience)},
		{"wrong issuer", sign(wrongIssuer)},
		{"no expiry", sign(noExpiry)},
		{"other secret", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, valid).SignedString([]byte("nope"))
			require.NoError(t, err)
			return s
		}()},
		{"garbage", "not.a.jwt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := outbox.VerifyToken(secret, tc.token)
			assert.Error(t, err)
		})
	}
}
