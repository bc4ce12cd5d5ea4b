package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, expires, err := m.Issue("s1@test.com", models.RoleStudent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	p, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "s1@test.com", p.Subject)
	assert.Equal(t, models.RoleStudent, p.Role)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewTokenManager("other", time.Hour).Issue("a", models.RoleAdmin)
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenManager("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := old.Issue("a", models.RoleStudent)
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, _, err := m.Issue("a", models.UserRole("proctor"))
		require.NoError(t, err)
		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

type staticVerifier struct {
	p   *Principal
	err error
}

func (s staticVerifier) Verify(string) (*Principal, error) { return s.p, s.err }

func TestChain(t *testing.T) {
	admin := &Principal{Subject: "admin", Role: models.RoleAdmin}
	fail := staticVerifier{err: errors.New("nope")}

	p, err := Chain(fail, nil, staticVerifier{p: admin}).Verify("x")
	require.NoError(t, err)
	assert.Equal(t, admin, p)

	_, err = Chain(fail).Verify("x")
	assert.Error(t, err)

	_, err = Chain().Verify("x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, IsHashed(hash))

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))

	assert.True(t, CheckPassword("plain", "plain"))
	assert.False(t, CheckPassword("plain", "Plain"))
	assert.False(t, CheckPassword("", ""))
}

func TestRoleFromCasdoor(t *testing.T) {
	assert.Equal(t, models.RoleAdmin, roleFromCasdoor(true, ""))
	assert.Equal(t, models.RoleAdmin, roleFromCasdoor(false, "Administrator"))
	assert.Equal(t, models.RoleStudent, roleFromCasdoor(false, "normal-user"))
}
