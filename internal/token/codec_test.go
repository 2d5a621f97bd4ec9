package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/autherr"
)

func testClaims(typ string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Type:          typ,
		SecurityLevel: 3,
		DeviceID:      "device-1",
		Roles:         []string{"user"},
		Permissions:   []string{"user:view"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestSignAndParse(t *testing.T) {
	cd := NewCodec("test-secret")

	raw, err := cd.Sign(testClaims(TypeAccess, time.Minute))
	require.NoError(t, err)

	got, err := cd.Parse(raw, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, TypeAccess, got.Type)
	assert.Equal(t, 3, got.SecurityLevel)
	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, []string{"user"}, got.Roles)
	assert.Equal(t, []string{"user:view"}, got.Permissions)

	id, err := got.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestParseRejectsWrongType(t *testing.T) {
	cd := NewCodec("test-secret")

	raw, err := cd.Sign(testClaims(TypeRefresh, time.Minute))
	require.NoError(t, err)

	_, err = cd.Parse(raw, TypeAccess)
	require.Error(t, err)
	assert.Equal(t, "invalid_token", autherr.As(err).Code)
}

func TestParseRejectsExpired(t *testing.T) {
	cd := NewCodec("test-secret")

	raw, err := cd.Sign(testClaims(TypeAccess, -time.Minute))
	require.NoError(t, err)

	_, err = cd.Parse(raw, TypeAccess)
	require.Error(t, err)
	assert.Equal(t, "expired_token", autherr.As(err).Code)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := NewCodec("secret-a").Sign(testClaims(TypeAccess, time.Minute))
	require.NoError(t, err)

	_, err = NewCodec("secret-b").Parse(raw, TypeAccess)
	require.Error(t, err)
	assert.Equal(t, "invalid_token", autherr.As(err).Code)
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	// alg=none is the classic downgrade; the pinned method list rejects it.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, testClaims(TypeAccess, time.Minute))
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewCodec("test-secret").Parse(raw, TypeAccess)
	require.Error(t, err)
	assert.Equal(t, "invalid_token", autherr.As(err).Code)
}

func TestParseRequiresIdentityClaims(t *testing.T) {
	cd := NewCodec("test-secret")

	missingSub := testClaims(TypeAccess, time.Minute)
	missingSub.Subject = ""
	missingJTI := testClaims(TypeAccess, time.Minute)
	missingJTI.ID = ""

	for name, claims := range map[string]*Claims{"subject": missingSub, "jti": missingJTI} {
		t.Run(name, func(t *testing.T) {
			raw, err := cd.Sign(claims)
			require.NoError(t, err)
			_, err = cd.Parse(raw, TypeAccess)
			require.Error(t, err)
		})
	}
}

func TestUserIDRejectsGarbageSubject(t *testing.T) {
	for _, sub := range []string{"", "0", "abc", "-1"} {
		c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
		_, err := c.UserID()
		assert.Error(t, err, "subject %q", sub)
	}
}
