package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// UserRepo provides data access to the `users` table and to the user-level
// role and permission joins. All read methods skip soft-deleted rows.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,username,password_hash,is_active,is_verified,deleted_at,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.IsActive, &u.IsVerified, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// CreateTx inserts a user inside the caller's transaction and returns the new
// id. passwordHash may be nil for OAuth-only accounts.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, email, username string, passwordHash *string, verified bool) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash, is_active, is_verified) VALUES (?,?,?,TRUE,?)",
		email, username, passwordHash, verified)
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

// GetByID fetches a non-deleted user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND deleted_at IS NULL LIMIT 1", id))
}

// GetByEmail fetches a non-deleted user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND deleted_at IS NULL LIMIT 1", email))
}

// GetByLogin fetches a non-deleted user whose username or email matches the
// login string. Used by the password login flow.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE (username=? OR email=?) AND deleted_at IS NULL LIMIT 1",
		login, login))
}

// DuplicateField reports which unique field collides with an existing
// non-deleted user: "username", "email" or "" when both are free.
func (r *UserRepo) DuplicateField(ctx context.Context, username, email string) (string, error) {
	var field string
	err := r.DB.QueryRowContext(ctx,
		`SELECT CASE WHEN username=? THEN 'username' ELSE 'email' END
		   FROM users WHERE (username=? OR email=?) AND deleted_at IS NULL LIMIT 1`,
		username, username, email).Scan(&field)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return field, err
}

// List returns one page of non-deleted users plus the total count.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]model.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE deleted_at IS NULL ORDER BY id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
			&u.IsActive, &u.IsVerified, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdatePassword overwrites the password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=? AND deleted_at IS NULL", hash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetVerified marks the user's email as verified. Verification is one-way.
func (r *UserRepo) SetVerified(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=TRUE WHERE id=? AND deleted_at IS NULL", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetActive flips the administrative active flag. Deactivation must be
// combined with a user-cutoff bump so outstanding tokens die.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=? AND deleted_at IS NULL", active, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// LoadAccess loads the authorization snapshot of a user: role names, the
// highest security level among them, and the union of direct and role-based
// permissions. A user with no roles gets level 1.
func (r *UserRepo) LoadAccess(ctx context.Context, id uint64) (roles []string, level int, perms []string, err error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.name, r.security_level FROM roles r
		   JOIN user_roles ur ON ur.role_id = r.id
		  WHERE ur.user_id = ?`, id)
	if err != nil {
		return nil, 0, nil, err
	}
	defer rows.Close()
	level = 1
	for rows.Next() {
		var name string
		var lvl int
		if err := rows.Scan(&name, &lvl); err != nil {
			return nil, 0, nil, err
		}
		roles = append(roles, name)
		if lvl > level {
			level = lvl
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, nil, err
	}

	prows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT p.name FROM permissions p
		   JOIN user_permissions up ON up.permission_id = p.id AND up.user_id = ?
		 UNION
		 SELECT DISTINCT p.name FROM permissions p
		   JOIN role_permissions rp ON rp.permission_id = p.id
		   JOIN user_roles ur ON ur.role_id = rp.role_id AND ur.user_id = ?`, id, id)
	if err != nil {
		return nil, 0, nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var name string
		if err := prows.Scan(&name); err != nil {
			return nil, 0, nil, err
		}
		perms = append(perms, name)
	}
	return roles, level, perms, prows.Err()
}

// AddRoleTx links a role to a user inside the caller's transaction. Adding a
// role the user already holds is a no-op.
func (r *UserRepo) AddRoleTx(ctx context.Context, tx *sql.Tx, userID, roleID uint64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID)
	return err
}

// RemoveRole unlinks a role from a user. ErrNotFound when the user did not
// hold the role.
func (r *UserRepo) RemoveRole(ctx context.Context, userID, roleID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id=? AND role_id=?", userID, roleID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// AddPermissions grants direct permissions to a user, skipping ones already
// granted.
func (r *UserRepo) AddPermissions(ctx context.Context, userID uint64, permissionIDs []uint64) error {
	for _, pid := range permissionIDs {
		if _, err := r.DB.ExecContext(ctx,
			"INSERT IGNORE INTO user_permissions (user_id, permission_id) VALUES (?,?)",
			userID, pid); err != nil {
			return err
		}
	}
	return nil
}

// RemovePermissions revokes direct permissions from a user. Revoking a
// permission the user does not hold directly is a no-op.
func (r *UserRepo) RemovePermissions(ctx context.Context, userID uint64, permissionIDs []uint64) error {
	for _, pid := range permissionIDs {
		if _, err := r.DB.ExecContext(ctx,
			"DELETE FROM user_permissions WHERE user_id=? AND permission_id=?",
			userID, pid); err != nil {
			return err
		}
	}
	return nil
}

// requireAffected maps "0 rows touched" onto ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
