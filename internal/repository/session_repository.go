package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// SessionRepo provides data access to the `sessions` table. The table
// carries a unique index over (user_id, device_id, is_active) so that at
// most one active session exists per device; callers must treat
// ErrDuplicate from Insert as "somebody else won the race" and re-read.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id,user_id,device_id,device_info,user_agent,last_activity,is_active,created_at"

// FindActive returns the active session of a (user, device) pair.
func (r *SessionRepo) FindActive(ctx context.Context, userID uint64, deviceID string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id=? AND device_id=? AND is_active=TRUE LIMIT 1",
		userID, deviceID).
		Scan(&s.ID, &s.UserID, &s.DeviceID, &s.DeviceInfo, &s.UserAgent, &s.LastActivity, &s.IsActive, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// GetByID fetches a session row regardless of its active flag.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.UserID, &s.DeviceID, &s.DeviceInfo, &s.UserAgent, &s.LastActivity, &s.IsActive, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// Insert creates a new active session and fills in its id. ErrDuplicate when
// an active session for the same (user, device) already exists.
func (r *SessionRepo) Insert(ctx context.Context, s *model.Session) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, device_id, device_info, user_agent, last_activity, is_active) VALUES (?,?,?,?,UTC_TIMESTAMP(),TRUE)",
		s.UserID, s.DeviceID, s.DeviceInfo, s.UserAgent)
	if err != nil {
		if strings.Contains(err.Error(), mysqlDuplicateEntry) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.IsActive = true
	return nil
}

// TouchActivity moves last_activity to now for an active session.
func (r *SessionRepo) TouchActivity(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET last_activity=UTC_TIMESTAMP() WHERE id=? AND is_active=TRUE", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Deactivate retires a session. Deactivation is terminal for the row.
func (r *SessionRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=FALSE WHERE id=? AND is_active=TRUE", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeactivateByDevice retires the active session of a (user, device) pair, if
// any. Used by logout, where an already-gone session is not an error.
func (r *SessionRepo) DeactivateByDevice(ctx context.Context, userID uint64, deviceID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=FALSE WHERE user_id=? AND device_id=? AND is_active=TRUE",
		userID, deviceID)
	return err
}

// IsActiveDevice reports whether an active session exists for the pair.
func (r *SessionRepo) IsActiveDevice(ctx context.Context, userID uint64, deviceID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE user_id=? AND device_id=? AND is_active=TRUE LIMIT 1",
		userID, deviceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByUser returns one page of a user's sessions, most recent first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint64, offset, limit int) ([]model.Session, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id=? ORDER BY last_activity DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.DeviceInfo, &s.UserAgent, &s.LastActivity, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}
