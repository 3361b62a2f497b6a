package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", auth.NormalizeEmail("  Jane@Example.COM "))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, auth.ValidateEmail("jane@example.com"))
	assert.Error(t, auth.ValidateEmail("a@"))
	assert.Error(t, auth.ValidateEmail("@example.com"))
	assert.Error(t, auth.ValidateEmail("no-at-sign"))
	assert.Error(t, auth.ValidateEmail("two@@example.com"))
	assert.Error(t, auth.ValidateEmail("jane@localhost"))
	assert.Error(t, auth.ValidateEmail("x@"+strings.Repeat("a", 260)+".com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, auth.ValidatePassword("sufficient1", 8))
	assert.Error(t, auth.ValidatePassword("short", 8))
	assert.Error(t, auth.ValidatePassword("aaaaaaaaaa", 8))
	assert.Error(t, auth.ValidatePassword(strings.Repeat("x1", 70), 8))

	// Zero min falls back to 8
	assert.Error(t, auth.ValidatePassword("seven77", 0))
	assert.NoError(t, auth.ValidatePassword("eight888", 0))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "123456", auth.NormalizeCode("123 456"))
	assert.Equal(t, "123456", auth.NormalizeCode("123-456"))
	assert.Equal(t, "123456", auth.NormalizeCode("123456"))
	assert.Equal(t, "", auth.NormalizeCode("abcdef"))
}
