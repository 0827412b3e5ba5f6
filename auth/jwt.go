// Package auth issues and validates the bearer tokens carried by teacher
// requests, and hashes account credentials. Tokens are stateless: validity is
// fully determined by signature, expiry, and the referenced account still
// existing — there is no server-side session table and no revocation path
// before natural expiry.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tutor.chat/models"
)

// DefaultTokenTTL is the fixed lifetime of an issued token.
const DefaultTokenTTL = time.Hour

// Claims binds a token to an account ID and the email it carried at issue
// time. Verification rejects tokens whose email no longer matches the stored
// account.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// GenerateToken signs an HS256 token for the account with expiry now+ttl.
func GenerateToken(accountID, email string, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		AccountID: accountID,
		Email:     email,
	})

	return token.SignedString(secret)
}

// ParseToken decodes and verifies a token string. Any failure — malformed,
// bad signature, expired — collapses to ErrUnauthorized; the caller must
// additionally confirm the referenced account still exists.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrUnauthorized
	}
	if claims.AccountID == "" || claims.Email == "" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
