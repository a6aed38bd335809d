package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	s := NewJWTService("super-secret-jwt-token-with-at-least-32-characters", "")

	token, err := s.GenerateToken("3f6c2d1e-0000-4000-8000-000000000001", "Anna@Lynqit.nl", time.Hour)
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "3f6c2d1e-0000-4000-8000-000000000001", claims.Subject)
	assert.Equal(t, "Anna@Lynqit.nl", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestValidateRejectsExpired(t *testing.T) {
	s := NewJWTService("secret", "")
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := s.GenerateToken("user-1", "a@b.nl", time.Hour)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	s := NewJWTService("secret", "")

	other, err := NewJWTService("other-secret", "").GenerateToken("user-1", "a@b.nl", time.Hour)
	require.NoError(t, err)
	_, err = s.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAud, err := NewJWTService("secret", "service_role").GenerateToken("user-1", "a@b.nl", time.Hour)
	require.NoError(t, err)
	_, err = s.ValidateToken(wrongAud)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	signed, err := noSubject.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMissingSecret(t *testing.T) {
	s := NewJWTService("", "")
	_, err := s.ValidateToken("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}
