package repository

import (
	"context"
	"database/sql"
)

// Well-known roles created at startup. super_admin receives every permission
// present at seed time; later permissions reach it through the system-user
// bypass in the evaluator, so no backfill is needed.
var seedRoles = []struct {
	name        string
	description string
	level       int
}{
	{"super_admin", "full administrative access", 10},
	{"system_admin", "system administration", 9},
	{"user", "default role for registered users", 1},
}

var seedPermissions = []string{
	"user:view", "user:update", "user:impersonate",
	"role:view", "role:create", "role:update", "role:delete", "role:assign", "role:remove",
	"permission:view", "permission:create", "permission:delete",
	"system:manage_settings",
}

// Seed makes sure the well-known roles and the baseline permission set exist
// and that super_admin carries every seeded permission. All statements are
// idempotent, so Seed is safe to run on every startup.
func Seed(ctx context.Context, db *sql.DB) error {
	for _, ro := range seedRoles {
		if _, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO roles (name, description, security_level) VALUES (?,?,?)",
			ro.name, ro.description, ro.level); err != nil {
			return err
		}
	}
	for _, p := range seedPermissions {
		if _, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO permissions (name) VALUES (?)", p); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT IGNORE INTO role_permissions (role_id, permission_id)
		 SELECT r.id, p.id FROM roles r, permissions p WHERE r.name = 'super_admin'`)
	return err
}
