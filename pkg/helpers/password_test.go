package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	ok, err := VerifyPassword(hash, "s3cretpass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrongpass")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	h1, err := HashPassword("samepassword")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)

	ok, err := VerifyPassword(h1, "samepassword")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = VerifyPassword(h2, "samepassword")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_CorruptHash(t *testing.T) {
	ok, err := VerifyPassword("definitely-not-bcrypt", "anything")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorruptHash)

	ok, err = VerifyPassword("", "anything")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorruptHash)
}
