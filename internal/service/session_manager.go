package service

import (
	"context"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/fingerprint"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
)

// SessionStore is the slice of the session repository the manager needs.
// *repository.SessionRepo satisfies it; tests provide an in-memory fake.
type SessionStore interface {
	FindActive(ctx context.Context, userID uint64, deviceID string) (model.Session, error)
	Insert(ctx context.Context, s *model.Session) error
	TouchActivity(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.Session, error)
	Deactivate(ctx context.Context, id uint64) error
}

// SessionManager materializes one session per (user, device). The device id
// is derived from the request fingerprint, so repeated logins from the same
// client reuse the same session row.
type SessionManager struct {
	Sessions  SessionStore
	Evaluator *rbac.Evaluator
}

func NewSessionManager(sessions SessionStore, eval *rbac.Evaluator) *SessionManager {
	return &SessionManager{Sessions: sessions, Evaluator: eval}
}

// GetOrCreate finds the active session of the user on the device described
// by the request metadata, refreshing its last-activity stamp, or inserts a
// fresh one. On a concurrent first login both callers may attempt the
// insert; the unique index elects a winner and the loser falls back to the
// read path.
func (m *SessionManager) GetOrCreate(ctx context.Context, userID uint64, rawUA, acceptLang, acceptEnc string) (model.Session, error) {
	info := fingerprint.Derive(rawUA, acceptLang, acceptEnc)

	s, err := m.Sessions.FindActive(ctx, userID, info.DeviceID)
	if err == nil {
		if err := m.Sessions.TouchActivity(ctx, s.ID); err != nil && err != repository.ErrNotFound {
			return model.Session{}, err
		}
		return s, nil
	}
	if err != repository.ErrNotFound {
		return model.Session{}, err
	}

	s = model.Session{
		UserID:     userID,
		DeviceID:   info.DeviceID,
		DeviceInfo: info.DeviceInfo,
		UserAgent:  info.UserAgent,
	}
	err = m.Sessions.Insert(ctx, &s)
	if err == repository.ErrDuplicate {
		// Lost the race; the winner's row is what we want.
		s, err = m.Sessions.FindActive(ctx, userID, info.DeviceID)
		if err != nil {
			return model.Session{}, err
		}
		if err := m.Sessions.TouchActivity(ctx, s.ID); err != nil && err != repository.ErrNotFound {
			return model.Session{}, err
		}
		return s, nil
	}
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// Deactivate retires a session on behalf of an actor. Only the session owner
// or a principal holding user:update may do so. Deactivation alone does not
// revoke outstanding tokens carrying the session's device id; callers
// combine it with a revocation when that is the intent.
func (m *SessionManager) Deactivate(ctx context.Context, sessionID uint64, actor rbac.Principal) error {
	s, err := m.Sessions.GetByID(ctx, sessionID)
	if err == repository.ErrNotFound {
		return autherr.NotFoundOrInactiveSession()
	}
	if err != nil {
		return err
	}
	if s.UserID != actor.UserID && !m.Evaluator.HasPermissions(actor, []string{"user:update"}) {
		return autherr.PermissionDenied("cannot deactivate another user's session")
	}
	if !s.IsActive {
		return autherr.NotFoundOrInactiveSession()
	}
	if err := m.Sessions.Deactivate(ctx, s.ID); err != nil {
		if err == repository.ErrNotFound {
			return autherr.NotFoundOrInactiveSession()
		}
		return err
	}
	return nil
}
