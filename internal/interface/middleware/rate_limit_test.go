package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampRemaining(t *testing.T) {
	assert.Equal(t, 4, clampRemaining(5, 1))
	assert.Equal(t, 0, clampRemaining(5, 5))
	// once over the limit the header stays at zero, never negative
	assert.Equal(t, 0, clampRemaining(5, 9))
}
