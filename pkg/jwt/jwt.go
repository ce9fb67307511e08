package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "wetalk/pkg/errors"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims mirrors what the account service puts into its tokens: the numeric
// user id lives in "user_id", the subject repeats it as a string.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(userID int64, username, secret, issuer string, ttl time.Duration) (string, error) {
	return generate(userID, username, TokenTypeAccess, secret, issuer, ttl)
}

func GenerateRefreshToken(userID int64, secret, issuer string, ttl time.Duration) (string, error) {
	return generate(userID, "", TokenTypeRefresh, secret, issuer, ttl)
}

func generate(userID int64, username, tokenType, secret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm and expiry of an access token.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	return validate(tokenString, secret, TokenTypeAccess)
}

func ValidateRefreshToken(tokenString, secret string) (*Claims, error) {
	return validate(tokenString, secret, TokenTypeRefresh)
}

func validate(tokenString, secret, expectedType string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("%w: unexpected token type %q", apperrors.ErrInvalidToken, claims.TokenType)
	}

	// Tokens minted elsewhere may only carry the subject.
	if claims.UserID == 0 && claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad subject", apperrors.ErrInvalidToken)
		}
		claims.UserID = id
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user_id", apperrors.ErrInvalidToken)
	}

	return claims, nil
}
