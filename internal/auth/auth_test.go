package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash, "hash must not be the plaintext")

	assert.True(t, CheckPassword("secret1", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b, "tokens must be unique")
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		confirm    string
		wantFields []string
	}{
		{"valid", "alice", "secret1", "secret1", nil},
		{"username too short", "abc", "secret1", "secret1", []string{"username"}},
		{"username too long", strings.Repeat("a", 81), "secret1", "secret1", []string{"username"}},
		{"username at limits", "abcd", "secret1", "secret1", nil},
		{"missing username", "", "secret1", "secret1", []string{"username"}},
		{"password too short", "alice", "abc", "abc", []string{"password"}},
		{"missing password", "alice", "", "", []string{"password"}},
		{"mismatch", "alice", "secret1", "secret2", []string{"confirm_password"}},
		{"everything wrong", "ab", "abc", "xyz", []string{"username", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRegistration(tt.username, tt.password, tt.confirm)
			assert.Len(t, errs, len(tt.wantFields))
			for _, field := range tt.wantFields {
				assert.Contains(t, errs, field)
			}
		})
	}
}
