package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "wetalk/pkg/errors"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(42, "alice", secret, "wetalk", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateToken_Rejects(t *testing.T) {
	valid, err := GenerateAccessToken(1, "alice", secret, "wetalk", time.Minute)
	require.NoError(t, err)

	expired, err := GenerateAccessToken(1, "alice", secret, "wetalk", -time.Minute)
	require.NoError(t, err)

	refresh, err := GenerateRefreshToken(1, secret, "wetalk", time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ValidateToken(valid, "other")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := ValidateToken(expired, secret)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ValidateToken("not-a-token", secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ValidateToken("", secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("refresh token used as access", func(t *testing.T) {
		_, err := ValidateToken(refresh, secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := Claims{
			UserID:    1,
			TokenType: TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = ValidateToken(signed, secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("missing user", func(t *testing.T) {
		claims := Claims{
			TokenType: TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = ValidateToken(signed, secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestValidateToken_SubjectFallback(t *testing.T) {
	claims := Claims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	got, err := ValidateToken(signed, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
}
