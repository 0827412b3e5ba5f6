package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor.chat/models"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("super-secret")

	tok, err := GenerateToken("acc-1", "jo@school.edu", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "jo@school.edu", claims.Email)
}

func TestParseExpired(t *testing.T) {
	secret := []byte("secret")

	// Well-formed signature, expiry already in the past.
	tok, err := GenerateToken("acc-1", "jo@school.edu", secret, -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestParseWrongSecret(t *testing.T) {
	tok, err := GenerateToken("acc-1", "jo@school.edu", []byte("right"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong"))
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestParseMalformed(t *testing.T) {
	_, err := ParseToken("not.a.jwt", []byte("k"))
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}
