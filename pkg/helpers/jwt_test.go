package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret", "HS256", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewJWTManager_UnsupportedAlgorithm(t *testing.T) {
	_, err := NewJWTManager("secret", "RS256", time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = NewJWTManager("secret", "none", time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestNewJWTManager_SupportedAlgorithms(t *testing.T) {
	for _, alg := range []string{"HS256", "HS512"} {
		m, err := NewJWTManager("secret", alg, time.Minute, time.Hour)
		require.NoError(t, err, alg)

		token, _, err := m.CreateAccessToken("alice@example.com")
		require.NoError(t, err)
		sub, err := m.Decode(token, TokenAccess)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", sub)
	}
}

func TestJWTManager_RoundTripPerKind(t *testing.T) {
	m := newTestManager(t)

	access, _, err := m.CreateAccessToken("a@example.com")
	require.NoError(t, err)
	refresh, _, err := m.CreateRefreshToken("a@example.com")
	require.NoError(t, err)
	email, err := m.CreateEmailToken("a@example.com")
	require.NoError(t, err)

	sub, err := m.Decode(access, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", sub)

	sub, err = m.Decode(refresh, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", sub)

	sub, err = m.Decode(email, TokenEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", sub)
}

func TestJWTManager_WrongKindRejected(t *testing.T) {
	m := newTestManager(t)

	refresh, _, err := m.CreateRefreshToken("a@example.com")
	require.NoError(t, err)

	_, err = m.Decode(refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	access, _, err := m.CreateAccessToken("a@example.com")
	require.NoError(t, err)

	_, err = m.Decode(access, TokenRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
	_, err = m.Decode(access, TokenEmail)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestJWTManager_Expiry(t *testing.T) {
	m := newTestManager(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return base }

	access, exp, err := m.CreateAccessToken("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, base.Add(15*time.Minute), exp)

	// Still valid just before expiry.
	m.Now = func() time.Time { return base.Add(14 * time.Minute) }
	_, err = m.Decode(access, TokenAccess)
	assert.NoError(t, err)

	// Rejected after expiry.
	m.Now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = m.Decode(access, TokenAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_EmailTokenNeverExpires(t *testing.T) {
	m := newTestManager(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return base }

	email, err := m.CreateEmailToken("a@example.com")
	require.NoError(t, err)

	m.Now = func() time.Time { return base.AddDate(3, 0, 0) }
	sub, err := m.Decode(email, TokenEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", sub)
}

func TestJWTManager_TamperedAndForeignTokens(t *testing.T) {
	m := newTestManager(t)

	access, _, err := m.CreateAccessToken("a@example.com")
	require.NoError(t, err)

	_, err = m.Decode(access+"x", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Decode("not-a-jwt", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewJWTManager("different-secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.CreateAccessToken("a@example.com")
	require.NoError(t, err)

	_, err = m.Decode(foreign, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
