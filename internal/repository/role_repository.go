package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// RoleRepo is the durable half of the role catalog. Cache invalidation after
// a mutation is the caller's job: every write here must be followed by an
// InvalidateRole call on the revocation store once the transaction commits.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

const roleColumns = "id,name,description,security_level,created_at,updated_at"

func scanRole(row *sql.Row) (model.Role, error) {
	var ro model.Role
	err := row.Scan(&ro.ID, &ro.Name, &ro.Description, &ro.SecurityLevel, &ro.CreatedAt, &ro.UpdatedAt)
	if err == sql.ErrNoRows {
		return ro, ErrNotFound
	}
	return ro, err
}

// GetByName fetches a role by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	return scanRole(r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE name=? LIMIT 1", name))
}

// Create inserts a role. ErrDuplicate when the name is taken.
func (r *RoleRepo) Create(ctx context.Context, name, description string, securityLevel int) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description, security_level) VALUES (?,?,?)",
		name, description, securityLevel)
	if err != nil {
		if strings.Contains(err.Error(), mysqlDuplicateEntry) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update overwrites description and security level.
func (r *RoleRepo) Update(ctx context.Context, id uint64, description string, securityLevel int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET description=?, security_level=? WHERE id=?",
		description, securityLevel, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a role; the role_permissions and user_roles joins cascade.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// List returns one page of roles plus the total count.
func (r *RoleRepo) List(ctx context.Context, offset, limit int) ([]model.Role, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM roles").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY security_level DESC, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var roles []model.Role
	for rows.Next() {
		var ro model.Role
		if err := rows.Scan(&ro.ID, &ro.Name, &ro.Description, &ro.SecurityLevel, &ro.CreatedAt, &ro.UpdatedAt); err != nil {
			return nil, 0, err
		}
		roles = append(roles, ro)
	}
	return roles, total, rows.Err()
}

// GetPermissions returns the permission names attached to a role.
func (r *RoleRepo) GetPermissions(ctx context.Context, roleID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.name FROM permissions p
		   JOIN role_permissions rp ON rp.permission_id = p.id
		  WHERE rp.role_id = ? ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// AddPermission attaches a permission to a role (idempotent).
func (r *RoleRepo) AddPermission(ctx context.Context, roleID, permissionID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?,?)",
		roleID, permissionID)
	return err
}

// RemovePermission detaches a permission from a role. ErrNotFound when the
// role did not carry it.
func (r *RoleRepo) RemovePermission(ctx context.Context, roleID, permissionID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM role_permissions WHERE role_id=? AND permission_id=?",
		roleID, permissionID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
