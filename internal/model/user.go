package model

import "time"

// User represents a row in the `users` table. Each field corresponds to a
// column; json tags are omitted because these structs are used by the
// repository layer and handlers define their own response types.
//
// PasswordHash is a pointer because OAuth-only accounts carry no password at
// all: a nil hash means the user can only log in through a linked provider.
// DeletedAt implements soft deletion; queries for "existing" users must
// filter on deleted_at IS NULL.
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email (unique among non-deleted, case-preserved)
	Username     string     // users.username (unique among non-deleted)
	PasswordHash *string    // users.password_hash (nullable; nil = OAuth-only)
	IsActive     bool       // users.is_active
	IsVerified   bool       // users.is_verified
	DeletedAt    *time.Time // users.deleted_at (nullable; soft delete)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}
