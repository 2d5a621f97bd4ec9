package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	mw "github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
)

// RoleHandler covers the role lifecycle. Mutations stamp an invalidation
// cutoff for the role name so tokens minted before the change stop passing
// validation.
type RoleHandler struct {
	Roles       *repository.RoleRepo
	Permissions *repository.PermissionRepo
	Revocations *repository.RevocationRepo
	Evaluator   *rbac.Evaluator
}

func NewRoleHandler(roles *repository.RoleRepo, perms *repository.PermissionRepo,
	rev *repository.RevocationRepo, eval *rbac.Evaluator) *RoleHandler {
	return &RoleHandler{Roles: roles, Permissions: perms, Revocations: rev, Evaluator: eval}
}

type createRoleReq struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SecurityLevel int    `json:"security_level"`
}

type updateRoleReq struct {
	Description   string `json:"description"`
	SecurityLevel int    `json:"security_level"`
}

type rolePermissionReq struct {
	Permission string `json:"permission"`
}

type roleDTO struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	SecurityLevel int    `json:"security_level"`
}

func toRoleDTO(r model.Role) roleDTO {
	return roleDTO{ID: r.ID, Name: r.Name, Description: r.Description, SecurityLevel: r.SecurityLevel}
}

// Create registers a new role below the actor's security level.
func (h *RoleHandler) Create(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	var req createRoleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, autherr.InvalidRoleName("malformed request body"))
	}
	name := strings.TrimSpace(req.Name)
	if err := h.Evaluator.EnsureRoleName(actor, name); err != nil {
		return fail(c, err)
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, req.SecurityLevel); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Roles.Create(ctx, name, req.Description, req.SecurityLevel)
	if err == repository.ErrDuplicate {
		return fail(c, autherr.DuplicateRole(name))
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusCreated, roleDTO{ID: id, Name: name, Description: req.Description, SecurityLevel: req.SecurityLevel})
}

// List returns one page of roles.
func (h *RoleHandler) List(c echo.Context) error {
	offset, limit, page := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	roles, total, err := h.Roles.List(ctx, offset, limit)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	items := make([]roleDTO, 0, len(roles))
	for _, r := range roles {
		items = append(items, toRoleDTO(r))
	}
	return c.JSON(http.StatusOK, paginated(items, page, limit, total))
}

// Get returns a single role with its permission names.
func (h *RoleHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.loadRole(ctx, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	perms, err := h.Roles.GetPermissions(ctx, role.ID)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"role": toRoleDTO(role), "permissions": perms})
}

// Update changes the description or security level of a role. Both the
// current and the requested level must sit below the actor.
func (h *RoleHandler) Update(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, autherr.NotFoundRole())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.loadRole(ctx, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, role.SecurityLevel); err != nil {
		return fail(c, err)
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, req.SecurityLevel); err != nil {
		return fail(c, err)
	}
	if err := h.Roles.Update(ctx, role.ID, req.Description, req.SecurityLevel); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Revocations.InvalidateRole(ctx, role.Name); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusOK, roleDTO{ID: role.ID, Name: role.Name, Description: req.Description, SecurityLevel: req.SecurityLevel})
}

// Delete removes a role entirely. Holders lose it on their next token
// refresh; existing tokens die through the invalidation cutoff.
func (h *RoleHandler) Delete(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.loadRole(ctx, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, role.SecurityLevel); err != nil {
		return fail(c, err)
	}
	if err := h.Roles.Delete(ctx, role.ID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Revocations.InvalidateRole(ctx, role.Name); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// AddPermission attaches a permission to a role. The actor must be able to
// grant the permission themselves.
func (h *RoleHandler) AddPermission(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	var req rolePermissionReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Permission) == "" {
		return fail(c, autherr.NotFoundPermissions(nil))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.loadRole(ctx, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, role.SecurityLevel); err != nil {
		return fail(c, err)
	}
	perm, err := h.Permissions.GetByName(ctx, strings.TrimSpace(req.Permission))
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundPermissions([]string{req.Permission}))
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Evaluator.EnsurePermissionGrantable(actor, perm.Name); err != nil {
		return fail(c, err)
	}
	if err := h.Roles.AddPermission(ctx, role.ID, perm.ID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Revocations.InvalidateRole(ctx, role.Name); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"role": role.Name, "permission": perm.Name})
}

// RemovePermission detaches a permission from a role.
func (h *RoleHandler) RemovePermission(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.loadRole(ctx, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	if err := h.Evaluator.EnsureSecurityLevel(actor.SecurityLevel, role.SecurityLevel); err != nil {
		return fail(c, err)
	}
	perm, err := h.Permissions.GetByName(ctx, c.Param("permission"))
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundPermissions([]string{c.Param("permission")}))
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Roles.RemovePermission(ctx, role.ID, perm.ID); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundPermissions([]string{perm.Name}))
		}
		return fail(c, autherr.Transport(err))
	}
	if err := h.Revocations.InvalidateRole(ctx, role.Name); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RoleHandler) loadRole(ctx context.Context, name string) (model.Role, error) {
	role, err := h.Roles.GetByName(ctx, name)
	if err == repository.ErrNotFound {
		return model.Role{}, autherr.NotFoundRole()
	}
	if err != nil {
		return model.Role{}, autherr.Transport(err)
	}
	return role, nil
}
