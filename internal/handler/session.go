package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	mw "github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
)

// SessionHandler lets a user inspect and terminate their own device sessions.
type SessionHandler struct {
	Sessions *service.SessionManager
	Store    *repository.SessionRepo
}

func NewSessionHandler(sessions *service.SessionManager, store *repository.SessionRepo) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Store: store}
}

type sessionDTO struct {
	ID           uint64 `json:"id"`
	DeviceID     string `json:"device_id"`
	UserAgent    string `json:"user_agent"`
	IsActive     bool   `json:"is_active"`
	Current      bool   `json:"current"`
	LastActivity string `json:"last_activity"`
	CreatedAt    string `json:"created_at"`
}

// toSessionDTO renders one session row; currentDevice is the device id from
// the caller's access token and marks the session the request came from.
func toSessionDTO(s model.Session, currentDevice string) sessionDTO {
	return sessionDTO{
		ID:           s.ID,
		DeviceID:     s.DeviceID,
		UserAgent:    s.UserAgent,
		IsActive:     s.IsActive,
		Current:      s.IsActive && currentDevice != "" && s.DeviceID == currentDevice,
		LastActivity: s.LastActivity.UTC().Format("2006-01-02T15:04:05Z"),
		CreatedAt:    s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// List returns one page of the caller's sessions, newest first.
func (h *SessionHandler) List(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	offset, limit, page := pageParams(c)
	var currentDevice string
	if claims, ok := mw.Claims(c); ok {
		currentDevice = claims.DeviceID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sessions, total, err := h.Store.ListByUser(ctx, actor.UserID, offset, limit)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	items := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, toSessionDTO(s, currentDevice))
	}
	return c.JSON(http.StatusOK, paginated(items, page, limit, total))
}

// Deactivate terminates one session. Owners can always close their own;
// closing someone else's requires user:update.
func (h *SessionHandler) Deactivate(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, autherr.NotFoundOrInactiveSession())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sessions.Deactivate(ctx, id, actor); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
