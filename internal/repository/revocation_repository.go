package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key namespaces inside Redis. Every entry is TTL-bound so the store cleans
// itself; revoked tokens are never enumerated, only point-checked.
const (
	keyRevokedJTI        = "revoked:"            // revoked:<jti> -> "1"
	keyRevokedUser       = "revoked_user:"       // revoked_user:<user_id> -> unix cutoff
	keyOAuthState        = "state:"              // state:<state> -> user_id (0 = new login)
	keySingleUse         = "token:"              // token:<sha256-hex> -> user_id
	keyInvalidRole       = "invalid_role:"       // invalid_role:<name> -> unix cutoff
	keyInvalidPermission = "invalid_permission:" // invalid_permission:<name> -> unix cutoff
)

// StateTTL bounds the OAuth anti-CSRF state lifetime.
const StateTTL = 10 * time.Minute

// InvalidationTTL bounds role/permission invalidation markers. It must
// outlive the longest access token by a wide margin; stale markers only cost
// an extra refresh.
const InvalidationTTL = 8 * 24 * time.Hour

// RevocationRepo implements the ephemeral revocation records over Redis:
// per-token and per-user revocation, OAuth states, single-use email tokens
// and the role/permission invalidation timestamps.
type RevocationRepo struct{ RDB *redis.Client }

func NewRevocationRepo(rdb *redis.Client) *RevocationRepo { return &RevocationRepo{RDB: rdb} }

// MarkJTI revokes a single token id for the given TTL.
func (r *RevocationRepo) MarkJTI(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // token already expired on its own
	}
	return r.RDB.Set(ctx, keyRevokedJTI+jti, "1", ttl).Err()
}

// IsRevoked reports whether a token id has been revoked.
func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.RDB.Exists(ctx, keyRevokedJTI+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkUser sets the per-user revocation cutoff to now: every token of the
// user issued before this moment becomes invalid. The write is idempotent on
// retry and monotonic thanks to the cutoff comparison at validation time.
func (r *RevocationRepo) MarkUser(ctx context.Context, userID uint64, ttl time.Duration) error {
	now := time.Now().UTC().Unix()
	return r.RDB.Set(ctx, keyRevokedUser+strconv.FormatUint(userID, 10), now, ttl).Err()
}

// UserCutoff returns the user's revocation cutoff as UNIX seconds, or 0 when
// no cutoff is recorded.
func (r *RevocationRepo) UserCutoff(ctx context.Context, userID uint64) (int64, error) {
	v, err := r.RDB.Get(ctx, keyRevokedUser+strconv.FormatUint(userID, 10)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil // unreadable marker, treat as absent
	}
	return ts, nil
}

// PutState stores an OAuth anti-CSRF state. userID 0 means "new login",
// anything else means "connect to this existing user".
func (r *RevocationRepo) PutState(ctx context.Context, state string, userID uint64) error {
	return r.RDB.Set(ctx, keyOAuthState+state, userID, StateTTL).Err()
}

// PopState atomically reads and deletes a state, so each state is usable at
// most once. ErrMissing when the state was never issued, expired or was
// already consumed.
func (r *RevocationRepo) PopState(ctx context.Context, state string) (uint64, error) {
	v, err := r.RDB.GetDel(ctx, keyOAuthState+state).Result()
	if err == redis.Nil {
		return 0, ErrMissing
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// PutSingleUse stores a single-use email token digest for verify/reset.
func (r *RevocationRepo) PutSingleUse(ctx context.Context, hash string, userID uint64, ttl time.Duration) error {
	return r.RDB.Set(ctx, keySingleUse+hash, userID, ttl).Err()
}

// ConsumeSingleUse atomically redeems a single-use token digest. Exactly one
// caller can succeed per token; the rest get ErrMissing.
func (r *RevocationRepo) ConsumeSingleUse(ctx context.Context, hash string) (uint64, error) {
	v, err := r.RDB.GetDel(ctx, keySingleUse+hash).Result()
	if err == redis.Nil {
		return 0, ErrMissing
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// InvalidateRole records "role changed at now": access tokens carrying the
// role and issued before this moment must be refreshed.
func (r *RevocationRepo) InvalidateRole(ctx context.Context, name string) error {
	return r.RDB.Set(ctx, keyInvalidRole+name, time.Now().UTC().Unix(), InvalidationTTL).Err()
}

// InvalidatePermission is InvalidateRole for a permission name.
func (r *RevocationRepo) InvalidatePermission(ctx context.Context, name string) error {
	return r.RDB.Set(ctx, keyInvalidPermission+name, time.Now().UTC().Unix(), InvalidationTTL).Err()
}

// InvalidationCutoff returns the max invalidation timestamp over the given
// role and permission names, or 0 when none is recorded. A single MGET keeps
// validation at one round-trip regardless of how many claims a token has.
func (r *RevocationRepo) InvalidationCutoff(ctx context.Context, roles, permissions []string) (int64, error) {
	if len(roles) == 0 && len(permissions) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(roles)+len(permissions))
	for _, name := range roles {
		keys = append(keys, keyInvalidRole+name)
	}
	for _, name := range permissions {
		keys = append(keys, keyInvalidPermission+name)
	}
	vals, err := r.RDB.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	var max int64
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		ts, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		if ts > max {
			max = ts
		}
	}
	return max, nil
}
