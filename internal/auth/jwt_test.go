package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTValidator_ValidToken(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "user-001",
		"email":   "mai.anh@example.com",
		"role":    "customer",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := validate(token)

	require.NoError(t, err)
	assert.Equal(t, "user-001", claims.UserID)
	assert.Equal(t, "mai.anh@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
}

func TestJWTValidator_SubjectFallback(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub":  "user-002",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := validate(token)

	require.NoError(t, err)
	assert.Equal(t, "user-002", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTValidator_WrongSecret(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, "other-secret", jwt.MapClaims{
		"user_id": "user-001",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := validate(token)

	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestJWTValidator_ExpiredToken(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "user-001",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	claims, err := validate(token)

	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestJWTValidator_MissingIdentity(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"role": "customer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := validate(token)

	assert.Nil(t, claims)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user identity")
}

func TestJWTValidator_Garbage(t *testing.T) {
	validate := NewJWTValidator(testSecret)

	claims, err := validate("not.a.token")

	assert.Nil(t, claims)
	assert.Error(t, err)
}
