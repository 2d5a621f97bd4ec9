// Package token implements signing and validation of the service's JWT
// payloads. The signing algorithm is pinned at construction time and is
// never taken from the token header, so an attacker cannot downgrade the
// verification by crafting a header of their own.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/auth-service/internal/autherr"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the payload of every token issued by the service. Access tokens
// additionally carry the roles and permissions snapshot used by the RBAC
// middleware; refresh tokens omit them.
type Claims struct {
	Type          string   `json:"type"`
	SecurityLevel int      `json:"lvl"`
	DeviceID      string   `json:"did"`
	Roles         []string `json:"roles,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into the numeric user id. Subjects are
// always issued as decimal strings.
func (c *Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, autherr.InvalidToken()
	}
	return id, nil
}

// Codec signs and verifies compact JWS strings with a single pinned
// HMAC-SHA-256 key.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign serializes and signs the claims.
func (cd *Codec) Sign(claims *Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(cd.secret)
}

// Parse verifies the signature and the registered time claims, then enforces
// that the token is of the expected type. Failures map onto the error
// taxonomy: exp <= now yields ExpiredToken, everything else InvalidToken.
func (cd *Codec) Parse(raw, expectedType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// The keyfunc doubles as the algorithm pin: anything other than
		// HMAC is rejected before signature verification.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cd.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherr.ExpiredToken()
		}
		return nil, autherr.InvalidToken()
	}
	if !tok.Valid {
		return nil, autherr.InvalidToken()
	}
	// Required claims: type, sub, jti, exp, iat. The jwt library only
	// validates the time claims when present, so absence is checked here.
	if claims.Type != expectedType {
		return nil, autherr.InvalidToken()
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, autherr.InvalidToken()
	}
	if !claims.ExpiresAt.After(time.Now().UTC()) {
		return nil, autherr.ExpiredToken()
	}
	return claims, nil
}
