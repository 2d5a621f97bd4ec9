package model

import "time"

// Session models an entry in the `sessions` table. A session represents one
// device of one user: DeviceID is the stable fingerprint hash, so repeated
// logins from the same client collapse into a single row. At most one active
// session may exist per (user_id, device_id); deactivation is terminal for a
// row, a later login on the same device inserts a fresh one.
type Session struct {
	ID           uint64    // sessions.id
	UserID       uint64    // sessions.user_id
	DeviceID     string    // sessions.device_id (SHA-256 hex of the canonical fingerprint)
	DeviceInfo   []byte    // sessions.device_info (canonical fingerprint JSON)
	UserAgent    string    // sessions.user_agent ("{browser} on {os}", max 100 chars)
	LastActivity time.Time // sessions.last_activity
	IsActive     bool      // sessions.is_active
	CreatedAt    time.Time // sessions.created_at
}

// OAuthAccount models an entry in the `oauth_accounts` table linking an
// external provider identity to a local user. (provider, provider_user_id)
// is unique and an account belongs to exactly one user.
type OAuthAccount struct {
	ID             uint64    // oauth_accounts.id
	Provider       string    // oauth_accounts.provider (google|yandex|github)
	ProviderUserID string    // oauth_accounts.provider_user_id
	ProviderEmail  string    // oauth_accounts.provider_email
	UserID         uint64    // oauth_accounts.user_id
	IsActive       bool      // oauth_accounts.is_active
	CreatedAt      time.Time // oauth_accounts.created_at
}
