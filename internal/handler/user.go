package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	mw "github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
)

// UserHandler implements the administrative user operations: listing and
// role/permission grants. Every mutation ends with a user-cutoff bump so the
// affected user's outstanding access tokens go stale immediately.
type UserHandler struct {
	Users       *repository.UserRepo
	Roles       *repository.RoleRepo
	Permissions *repository.PermissionRepo
	Revocations *repository.RevocationRepo
	Evaluator   *rbac.Evaluator
	JWTs        *service.JWTManager
}

func NewUserHandler(users *repository.UserRepo, roles *repository.RoleRepo, perms *repository.PermissionRepo,
	rev *repository.RevocationRepo, eval *rbac.Evaluator, jwts *service.JWTManager) *UserHandler {
	return &UserHandler{Users: users, Roles: roles, Permissions: perms, Revocations: rev, Evaluator: eval, JWTs: jwts}
}

type assignRoleReq struct {
	RoleName string `json:"role_name"`
}
type setActiveReq struct {
	Active *bool `json:"active"`
}
type permissionsReq struct {
	Permissions []string `json:"permissions"`
}

// List returns one page of users. Gated by user:view on the route.
func (h *UserHandler) List(c echo.Context) error {
	offset, limit, page := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, total, err := h.Users.List(ctx, offset, limit)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	items := make([]userDTO, 0, len(users))
	for _, u := range users {
		items = append(items, toUserDTO(u))
	}
	return c.JSON(http.StatusOK, paginated(items, page, limit, total))
}

// AssignRole links a role to a user. The actor must sit strictly above the
// role's security level; the grant invalidates the user's issued tokens.
func (h *UserHandler) AssignRole(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return fail(c, autherr.NotFoundUser())
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RoleName) == "" {
		return fail(c, autherr.NotFoundRole())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.Roles.GetByName(ctx, strings.TrimSpace(req.RoleName))
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundRole())
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, role.SecurityLevel); err != nil {
		return fail(c, err)
	}
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundUser())
		}
		return fail(c, autherr.Transport(err))
	}

	tx, err := h.Users.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	defer func() { _ = tx.Rollback() }()
	if err := h.Users.AddRoleTx(ctx, tx, userID, role.ID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := tx.Commit(); err != nil {
		return fail(c, autherr.Transport(err))
	}

	if err := h.JWTs.RevokeUser(ctx, userID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "role": role.Name})
}

// RemoveRole unlinks a role from a user and invalidates the user's tokens.
func (h *UserHandler) RemoveRole(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return fail(c, autherr.NotFoundUser())
	}
	name := c.Param("name")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.Roles.GetByName(ctx, name)
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundRole())
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, role.SecurityLevel); err != nil {
		return fail(c, err)
	}
	if err := h.Users.RemoveRole(ctx, userID, role.ID); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundRole())
		}
		return fail(c, autherr.Transport(err))
	}
	if err := h.JWTs.RevokeUser(ctx, userID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// SetActive flips a user's administrative active flag. Deactivation bumps
// the user's revocation cutoff so their outstanding tokens die with the
// account; a deactivated user cannot log in or refresh until reactivated.
func (h *UserHandler) SetActive(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return fail(c, autherr.NotFoundUser())
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return fail(c, autherr.NotFoundUser())
	}
	if userID == actor.UserID && !*req.Active {
		return fail(c, autherr.PermissionDenied("cannot deactivate your own account"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.SetActive(ctx, userID, *req.Active); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundUser())
		}
		return fail(c, autherr.Transport(err))
	}
	if !*req.Active {
		if err := h.JWTs.RevokeUser(ctx, userID); err != nil {
			return fail(c, autherr.Transport(err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "active": *req.Active})
}

// AddPermissions grants direct permissions to a user. Each permission must
// be grantable by the actor; unknown names fail the whole request.
func (h *UserHandler) AddPermissions(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return fail(c, autherr.NotFoundUser())
	}
	var req permissionsReq
	if err := c.Bind(&req); err != nil || len(req.Permissions) == 0 {
		return fail(c, autherr.NotFoundPermissions(nil))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ids, err := h.resolveGrantable(ctx, actor, req.Permissions)
	if err != nil {
		return fail(c, err)
	}
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundUser())
		}
		return fail(c, autherr.Transport(err))
	}
	if err := h.Users.AddPermissions(ctx, userID, ids); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.JWTs.RevokeUser(ctx, userID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "permissions": req.Permissions})
}

// RemovePermissions revokes direct permissions from a user.
func (h *UserHandler) RemovePermissions(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return fail(c, autherr.NotFoundUser())
	}
	var req permissionsReq
	if err := c.Bind(&req); err != nil || len(req.Permissions) == 0 {
		return fail(c, autherr.NotFoundPermissions(nil))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ids, err := h.resolveGrantable(ctx, actor, req.Permissions)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Users.RemovePermissions(ctx, userID, ids); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.JWTs.RevokeUser(ctx, userID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// resolveGrantable maps permission names to ids, requiring every name to
// exist and to be grantable by the actor.
func (h *UserHandler) resolveGrantable(ctx context.Context, actor rbac.Principal, names []string) ([]uint64, error) {
	found, missing, err := h.Permissions.GetByNames(ctx, names)
	if err != nil {
		return nil, autherr.Transport(err)
	}
	if len(missing) > 0 {
		return nil, autherr.NotFoundPermissions(missing)
	}
	ids := make([]uint64, 0, len(found))
	for _, p := range found {
		if err := h.Evaluator.EnsurePermissionGrantable(actor, p.Name); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
