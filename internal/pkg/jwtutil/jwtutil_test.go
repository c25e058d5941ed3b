package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	tok, err := GenerateToken(testSecret, 365*24*time.Hour, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := ParseToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken(testSecret, time.Hour, "user-1")
	require.NoError(t, err)

	_, err = ParseToken("wrong", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken(testSecret, -time.Minute, "user-1")
	require.NoError(t, err)

	_, err = ParseToken(testSecret, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{"userId": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(testSecret, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_MissingClaims(t *testing.T) {
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, noUser)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "user-1",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken(testSecret, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
