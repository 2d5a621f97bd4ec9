package service

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/token"
)

// RevocationStore is the slice of the revocation repository the manager
// needs. *repository.RevocationRepo satisfies it.
type RevocationStore interface {
	MarkJTI(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	MarkUser(ctx context.Context, userID uint64, ttl time.Duration) error
	UserCutoff(ctx context.Context, userID uint64) (int64, error)
	InvalidationCutoff(ctx context.Context, roles, permissions []string) (int64, error)
}

// DeviceChecker answers whether a (user, device) pair still has an active
// session. *repository.SessionRepo satisfies it.
type DeviceChecker interface {
	IsActiveDevice(ctx context.Context, userID uint64, deviceID string) (bool, error)
}

// TokenPair is one issued access/refresh pair. Both tokens share their
// issue time and device id but carry distinct token ids.
type TokenPair struct {
	Access         string
	Refresh        string
	AccessExpires  time.Time
	RefreshExpires time.Time
}

// revocationMargin pads every jti revocation TTL past the token's own
// expiry so clock drift between nodes cannot resurrect a revoked token.
const revocationMargin = 24 * time.Hour

// JWTManager owns the token lifecycle: issuing pairs, validating against
// the revocation records and the invalidation timestamps, rotation and
// revocation.
type JWTManager struct {
	Codec       *token.Codec
	Revocations RevocationStore
	Devices     DeviceChecker
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

func NewJWTManager(codec *token.Codec, rev RevocationStore, devices DeviceChecker, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		Codec:       codec,
		Revocations: rev,
		Devices:     devices,
		AccessTTL:   accessTTL,
		RefreshTTL:  refreshTTL,
	}
}

// IssuePair mints an access/refresh pair for the principal on one device.
func (m *JWTManager) IssuePair(ctx context.Context, p rbac.Principal, deviceID string) (TokenPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(m.AccessTTL)
	refreshExp := now.Add(m.RefreshTTL)
	sub := strconv.FormatUint(p.UserID, 10)

	access, err := m.Codec.Sign(&token.Claims{
		Type:          token.TypeAccess,
		SecurityLevel: p.SecurityLevel,
		DeviceID:      deviceID,
		Roles:         p.Roles,
		Permissions:   p.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := m.Codec.Sign(&token.Claims{
		Type:          token.TypeRefresh,
		SecurityLevel: p.SecurityLevel,
		DeviceID:      deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		Access:         access,
		Refresh:        refresh,
		AccessExpires:  accessExp,
		RefreshExpires: refreshExp,
	}, nil
}

// Validate verifies a token end to end: signature and time claims via the
// codec, then the revocation layers. A token fails when its jti is revoked,
// when the user's cutoff postdates its issue time, or (access tokens only)
// when any role or permission it carries was invalidated after issue. The
// last check is what forces a refresh after an RBAC mutation without any
// per-token bookkeeping.
func (m *JWTManager) Validate(ctx context.Context, raw, expectedType string) (*token.Claims, error) {
	claims, err := m.Codec.Parse(raw, expectedType)
	if err != nil {
		return nil, err
	}

	revoked, err := m.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, autherr.Transport(err)
	}
	if revoked {
		return nil, autherr.InvalidToken()
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	iat := claims.IssuedAt.Unix()

	cutoff, err := m.Revocations.UserCutoff(ctx, userID)
	if err != nil {
		return nil, autherr.Transport(err)
	}
	if cutoff > iat {
		return nil, autherr.InvalidToken()
	}

	if claims.Type == token.TypeAccess {
		inv, err := m.Revocations.InvalidationCutoff(ctx, claims.Roles, claims.Permissions)
		if err != nil {
			return nil, autherr.Transport(err)
		}
		if inv > iat {
			return nil, autherr.InvalidToken()
		}
	}
	return claims, nil
}

// Refresh rotates a refresh token: it validates the presented token,
// requires the (user, device) session to still be active, issues a fresh
// pair from the snapshot loaded by the caller and revokes the presented
// token id for the rest of its lifetime plus the safety margin.
func (m *JWTManager) Refresh(ctx context.Context, rawRefresh string, loadSnapshot func(ctx context.Context, userID uint64) (rbac.Principal, error)) (TokenPair, error) {
	claims, err := m.Validate(ctx, rawRefresh, token.TypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return TokenPair{}, err
	}

	active, err := m.Devices.IsActiveDevice(ctx, userID, claims.DeviceID)
	if err != nil {
		return TokenPair{}, autherr.Transport(err)
	}
	if !active {
		return TokenPair{}, autherr.NotFoundOrInactiveSession()
	}

	p, err := loadSnapshot(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := m.IssuePair(ctx, p, claims.DeviceID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := m.revokeClaims(ctx, claims); err != nil {
		return TokenPair{}, autherr.Transport(err)
	}
	return pair, nil
}

// Revoke validates a refresh token and retires its jti. The validated claims
// are returned so the caller can also deactivate the matching session.
func (m *JWTManager) Revoke(ctx context.Context, rawRefresh string) (*token.Claims, error) {
	claims, err := m.Validate(ctx, rawRefresh, token.TypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := m.revokeClaims(ctx, claims); err != nil {
		return nil, autherr.Transport(err)
	}
	return claims, nil
}

// RevokeUser bumps the per-user cutoff so every outstanding token of the
// user dies. The record outlives the longest refresh token.
func (m *JWTManager) RevokeUser(ctx context.Context, userID uint64) error {
	return m.Revocations.MarkUser(ctx, userID, m.RefreshTTL+revocationMargin)
}

func (m *JWTManager) revokeClaims(ctx context.Context, claims *token.Claims) error {
	remaining := time.Until(claims.ExpiresAt.Time)
	return m.Revocations.MarkJTI(ctx, claims.ID, remaining+revocationMargin)
}
