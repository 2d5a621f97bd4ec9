// Package rbac implements the authorization checks: permission sets,
// security-level comparison, role-name validation and the protected
// permission set. The evaluator is pure; it never touches a store, all
// inputs arrive as a Principal snapshot.
package rbac

import (
	"regexp"
	"strings"

	"github.com/iliyamo/auth-service/internal/autherr"
)

// Principal is the authorization snapshot of one authenticated user, either
// loaded from the database at login time or decoded from an access token.
type Principal struct {
	UserID        uint64
	SecurityLevel int
	Roles         []string
	Permissions   []string
}

// HasPermission reports whether the raw permission list contains name. It
// does not apply the system-user bypass; use Evaluator.HasPermissions for
// authorization decisions.
func (p Principal) HasPermission(name string) bool {
	for _, have := range p.Permissions {
		if have == name {
			return true
		}
	}
	return false
}

var roleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Reserved role-name prefixes; only system users may create such roles.
var reservedRolePrefixes = []string{"system_", "admin_"}

// Evaluator holds the constructor-time configuration of the RBAC rules.
type Evaluator struct {
	systemRoles          map[string]bool
	protectedPermissions map[string]bool
}

// DefaultSystemRoles are the roles whose holders bypass per-permission
// checks (they remain subject to security-level strictness).
var DefaultSystemRoles = []string{"super_admin", "system_admin"}

// DefaultProtectedPermissions is the default protected set: the role and
// permission lifecycles plus the two high-impact system permissions.
var DefaultProtectedPermissions = []string{
	"role:create", "role:update", "role:delete", "role:assign", "role:remove",
	"permission:create", "permission:delete",
	"user:impersonate",
	"system:manage_settings",
}

// NewEvaluator builds an evaluator. Nil slices select the defaults.
func NewEvaluator(systemRoles, protectedPermissions []string) *Evaluator {
	if systemRoles == nil {
		systemRoles = DefaultSystemRoles
	}
	if protectedPermissions == nil {
		protectedPermissions = DefaultProtectedPermissions
	}
	e := &Evaluator{
		systemRoles:          make(map[string]bool, len(systemRoles)),
		protectedPermissions: make(map[string]bool, len(protectedPermissions)),
	}
	for _, r := range systemRoles {
		e.systemRoles[r] = true
	}
	for _, p := range protectedPermissions {
		e.protectedPermissions[p] = true
	}
	return e
}

// IsSystem reports whether the principal holds any system role.
func (e *Evaluator) IsSystem(p Principal) bool {
	for _, r := range p.Roles {
		if e.systemRoles[r] {
			return true
		}
	}
	return false
}

// IsProtected reports whether a permission name belongs to the protected set.
func (e *Evaluator) IsProtected(name string) bool {
	return e.protectedPermissions[name]
}

// HasPermissions reports whether the principal may perform an action gated by
// the required set: system users always may, everyone else needs every
// required permission.
func (e *Evaluator) HasPermissions(p Principal, required []string) bool {
	if e.IsSystem(p) {
		return true
	}
	for _, need := range required {
		if !p.HasPermission(need) {
			return false
		}
	}
	return true
}

// EnsurePermissions is HasPermissions with a taxonomy error listing what was
// missing.
func (e *Evaluator) EnsurePermissions(p Principal, required []string) error {
	if e.HasPermissions(p, required) {
		return nil
	}
	return autherr.AccessDenied(required)
}

// EnsureRoleName validates a role name for creation or rename: 3-24 chars
// from [a-zA-Z0-9_-], and the system_/admin_ prefixes are reserved for
// system users.
func (e *Evaluator) EnsureRoleName(p Principal, name string) error {
	if len(name) < 3 || len(name) > 24 {
		return autherr.InvalidRoleName("role name must be 3-24 characters")
	}
	if !roleNamePattern.MatchString(name) {
		return autherr.InvalidRoleName("role name may only contain letters, digits, '_' and '-'")
	}
	if !e.IsSystem(p) {
		for _, prefix := range reservedRolePrefixes {
			if strings.HasPrefix(name, prefix) {
				return autherr.InvalidRoleName("role name prefix is reserved")
			}
		}
	}
	return nil
}

// EnsurePermissionGrantable decides whether the principal may grant or
// revoke the named permission. Protected permissions are reserved to system
// users outright; for anything else the principal must already hold the
// permission it is handing out.
func (e *Evaluator) EnsurePermissionGrantable(p Principal, name string) error {
	if e.IsSystem(p) {
		return nil
	}
	if e.protectedPermissions[name] {
		return autherr.ProtectedPermission(name)
	}
	if !p.HasPermission(name) {
		return autherr.AccessDenied([]string{name})
	}
	return nil
}

// EnsureSecurityLevel enforces the strict tier ordering: the target level
// must be valid (>= 1) and strictly below the actor's. Equal levels are
// rejected so a privileged user cannot clone their own tier.
func (e *Evaluator) EnsureSecurityLevel(actorLevel, targetLevel int) error {
	if targetLevel < 1 {
		return autherr.InvalidRoleName("security level must be at least 1")
	}
	if actorLevel <= targetLevel {
		return autherr.InsufficientSecurityLevel()
	}
	return nil
}
