package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	mw "github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
)

// PermissionHandler covers the permission catalogue. Protected permissions
// can only be created or deleted by system roles.
type PermissionHandler struct {
	Permissions *repository.PermissionRepo
	Revocations *repository.RevocationRepo
	Evaluator   *rbac.Evaluator
}

func NewPermissionHandler(perms *repository.PermissionRepo, rev *repository.RevocationRepo, eval *rbac.Evaluator) *PermissionHandler {
	return &PermissionHandler{Permissions: perms, Revocations: rev, Evaluator: eval}
}

type createPermissionReq struct {
	Name string `json:"name"`
}

// Create adds a permission to the catalogue.
func (h *PermissionHandler) Create(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	var req createPermissionReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fail(c, autherr.NotFoundPermissions(nil))
	}
	name := strings.TrimSpace(req.Name)
	if h.Evaluator.IsProtected(name) && !h.Evaluator.IsSystem(actor) {
		return fail(c, autherr.ProtectedPermission(name))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Permissions.Create(ctx, name)
	if err == repository.ErrDuplicate {
		return fail(c, autherr.DuplicatePermission(name))
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "name": name})
}

// List returns one page of permissions.
func (h *PermissionHandler) List(c echo.Context) error {
	offset, limit, page := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	perms, total, err := h.Permissions.List(ctx, offset, limit)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return c.JSON(http.StatusOK, paginated(names, page, limit, total))
}

// Delete removes a permission and stamps an invalidation cutoff so tokens
// still carrying it stop validating.
func (h *PermissionHandler) Delete(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	name := c.Param("name")
	if h.Evaluator.IsProtected(name) && !h.Evaluator.IsSystem(actor) {
		return fail(c, autherr.ProtectedPermission(name))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	perm, err := h.Permissions.GetByName(ctx, name)
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundPermissions([]string{name}))
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Permissions.Delete(ctx, perm.ID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Revocations.InvalidatePermission(ctx, perm.Name); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}
