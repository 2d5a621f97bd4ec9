package model

import "time"

// Role represents a row in the `roles` table. SecurityLevel is the tier used
// by the strict-inequality check in the RBAC evaluator: an actor may only
// affect roles (and users) with a strictly lower level.
type Role struct {
	ID            uint64    // roles.id
	Name          string    // roles.name (unique, 3-24 chars, [a-zA-Z0-9_-])
	Description   string    // roles.description
	SecurityLevel int       // roles.security_level, 1..10
	CreatedAt     time.Time // roles.created_at
	UpdatedAt     time.Time // roles.updated_at
}

// Permission represents a row in the `permissions` table. Names follow the
// "resource:action" convention, e.g. "user:view" or "role:assign".
type Permission struct {
	ID        uint64    // permissions.id
	Name      string    // permissions.name (unique)
	CreatedAt time.Time // permissions.created_at
}

// Well-known role names seeded at startup.
const (
	RoleSuperAdmin  = "super_admin"  // level 10, holds every permission
	RoleSystemAdmin = "system_admin" // level 9
	RoleUser        = "user"         // level 1, no permissions
)
