package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3r!secret", MinBcryptCost)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, VerifyPassword(hash, "Sup3r!secret"))
	assert.False(t, VerifyPassword(hash, "Sup3r!secrex"))
	assert.False(t, VerifyPassword("", "Sup3r!secret"))
}

func TestHashPasswordEnforcesMinimumCost(t *testing.T) {
	// A cost below the floor is clamped, never silently weakened.
	hash, err := HashPassword("Sup3r!secret", 4)
	require.NoError(t, err)
	assert.Contains(t, hash, "$12$")
}

func TestHashPasswordAcceptsFullPolicyLength(t *testing.T) {
	// The policy allows up to 128 characters while bcrypt caps its input at
	// 72 bytes; such passwords must still hash and verify.
	long := "Aa1!" + strings.Repeat("x", 124)
	require.Empty(t, ValidatePassword(long))

	hash, err := HashPassword(long, MinBcryptCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, long))
	assert.False(t, VerifyPassword(hash, "Aa1!"+strings.Repeat("y", 124)))
}

func TestHashPasswordSalts(t *testing.T) {
	a, err := HashPassword("Sup3r!secret", MinBcryptCost)
	require.NoError(t, err)
	b, err := HashPassword("Sup3r!secret", MinBcryptCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Abcdef1!", true},
		{"valid long", "A" + strings.Repeat("a", 120) + "1!", true},
		{"too short", "Ab1!xyz", false},
		{"too long", "A1!" + strings.Repeat("a", 126), false},
		{"no uppercase", "abcdef1!", false},
		{"no lowercase", "ABCDEF1!", false},
		{"no digit", "Abcdefg!", false},
		{"no special", "Abcdefg1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason := ValidatePassword(tc.password)
			if tc.ok {
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestRandomURLSafe(t *testing.T) {
	a, err := RandomURLSafe(32)
	require.NoError(t, err)
	b, err := RandomURLSafe(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// URL-safe alphabet only; tokens are embedded into links.
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
