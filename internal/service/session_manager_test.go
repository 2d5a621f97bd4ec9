package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
)

// fakeSessionStore keeps sessions in a slice and can simulate the
// concurrent-insert race via failNextInsert.
type fakeSessionStore struct {
	sessions       []model.Session
	nextID         uint64
	touched        []uint64
	failNextInsert bool
}

func (f *fakeSessionStore) FindActive(_ context.Context, userID uint64, deviceID string) (model.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.DeviceID == deviceID && s.IsActive {
			return s, nil
		}
	}
	return model.Session{}, repository.ErrNotFound
}

func (f *fakeSessionStore) Insert(_ context.Context, s *model.Session) error {
	if f.failNextInsert {
		// Another caller won the insert race; materialize its row.
		f.failNextInsert = false
		f.nextID++
		f.sessions = append(f.sessions, model.Session{
			ID: f.nextID, UserID: s.UserID, DeviceID: s.DeviceID, IsActive: true,
		})
		return repository.ErrDuplicate
	}
	for _, have := range f.sessions {
		if have.UserID == s.UserID && have.DeviceID == s.DeviceID && have.IsActive {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	s.ID = f.nextID
	s.IsActive = true
	f.sessions = append(f.sessions, *s)
	return nil
}

func (f *fakeSessionStore) TouchActivity(_ context.Context, id uint64) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uint64) (model.Session, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Session{}, repository.ErrNotFound
}

func (f *fakeSessionStore) Deactivate(_ context.Context, id uint64) error {
	for i, s := range f.sessions {
		if s.ID == id && s.IsActive {
			f.sessions[i].IsActive = false
			return nil
		}
	}
	return repository.ErrNotFound
}

const testUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestGetOrCreateReusesSameDevice(t *testing.T) {
	store := &fakeSessionStore{}
	m := NewSessionManager(store, rbac.NewEvaluator(nil, nil))
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, 1, testUA, "en-US", "gzip")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := m.GetOrCreate(ctx, 1, testUA, "en-US", "gzip")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.sessions, 1)
	// The repeated login refreshed the activity stamp.
	assert.Equal(t, []uint64{first.ID}, store.touched)
}

func TestGetOrCreateSeparatesDevicesAndUsers(t *testing.T) {
	store := &fakeSessionStore{}
	m := NewSessionManager(store, rbac.NewEvaluator(nil, nil))
	ctx := context.Background()

	a, err := m.GetOrCreate(ctx, 1, testUA, "en-US", "gzip")
	require.NoError(t, err)
	b, err := m.GetOrCreate(ctx, 1, testUA, "de-DE", "gzip")
	require.NoError(t, err)
	c, err := m.GetOrCreate(ctx, 2, testUA, "en-US", "gzip")
	require.NoError(t, err)

	assert.NotEqual(t, a.DeviceID, b.DeviceID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Len(t, store.sessions, 3)
}

func TestGetOrCreateSurvivesInsertRace(t *testing.T) {
	store := &fakeSessionStore{failNextInsert: true}
	m := NewSessionManager(store, rbac.NewEvaluator(nil, nil))

	s, err := m.GetOrCreate(context.Background(), 1, testUA, "en-US", "gzip")
	require.NoError(t, err)
	require.NotZero(t, s.ID)
	// Only the winner's row exists.
	assert.Len(t, store.sessions, 1)
}

func TestDeactivateOwnSession(t *testing.T) {
	store := &fakeSessionStore{}
	m := NewSessionManager(store, rbac.NewEvaluator(nil, nil))
	ctx := context.Background()

	s, err := m.GetOrCreate(ctx, 1, testUA, "en-US", "gzip")
	require.NoError(t, err)

	owner := rbac.Principal{UserID: 1}
	require.NoError(t, m.Deactivate(ctx, s.ID, owner))

	// A second attempt sees the session as already inactive.
	err = m.Deactivate(ctx, s.ID, owner)
	require.Error(t, err)
	assert.Equal(t, "not_found_or_inactive_session", autherr.As(err).Code)
}

func TestDeactivateForeignSession(t *testing.T) {
	store := &fakeSessionStore{}
	m := NewSessionManager(store, rbac.NewEvaluator(nil, nil))
	ctx := context.Background()

	s, err := m.GetOrCreate(ctx, 1, testUA, "en-US", "gzip")
	require.NoError(t, err)

	stranger := rbac.Principal{UserID: 2}
	err = m.Deactivate(ctx, s.ID, stranger)
	require.Error(t, err)
	assert.Equal(t, "permission_denied", autherr.As(err).Code)

	// user:update lets an administrator close someone else's session.
	admin := rbac.Principal{UserID: 3, Permissions: []string{"user:update"}}
	require.NoError(t, m.Deactivate(ctx, s.ID, admin))
}

func TestDeactivateMissingSession(t *testing.T) {
	m := NewSessionManager(&fakeSessionStore{}, rbac.NewEvaluator(nil, nil))

	err := m.Deactivate(context.Background(), 99, rbac.Principal{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, "not_found_or_inactive_session", autherr.As(err).Code)
}
