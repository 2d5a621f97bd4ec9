package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/autherr"
)

func TestHasPermissions(t *testing.T) {
	eval := NewEvaluator(nil, nil)

	plain := Principal{UserID: 1, SecurityLevel: 1, Roles: []string{"user"}, Permissions: []string{"user:view"}}
	admin := Principal{UserID: 2, SecurityLevel: 10, Roles: []string{"super_admin"}}

	assert.True(t, eval.HasPermissions(plain, []string{"user:view"}))
	assert.False(t, eval.HasPermissions(plain, []string{"user:view", "user:update"}))
	// System roles bypass the permission check entirely.
	assert.True(t, eval.HasPermissions(admin, []string{"user:update", "role:delete"}))
	assert.True(t, eval.HasPermissions(plain, nil))
}

func TestEnsurePermissionsReportsMissing(t *testing.T) {
	eval := NewEvaluator(nil, nil)
	p := Principal{UserID: 1, Permissions: []string{"user:view"}}

	err := eval.EnsurePermissions(p, []string{"user:view", "user:update"})
	require.Error(t, err)
	ae := autherr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "access_denied", ae.Code)
	assert.Equal(t, []string{"user:view", "user:update"}, ae.Detail["need_permissions"])
}

func TestEnsureRoleName(t *testing.T) {
	eval := NewEvaluator(nil, nil)
	plain := Principal{UserID: 1, Roles: []string{"user"}}
	admin := Principal{UserID: 2, Roles: []string{"system_admin"}}

	cases := []struct {
		name    string
		actor   Principal
		role    string
		wantErr bool
	}{
		{"valid", plain, "editor", false},
		{"valid with dash and digit", plain, "tier-2_ops", false},
		{"too short", plain, "ab", true},
		{"too long", plain, "abcdefghijklmnopqrstuvwxy", true},
		{"bad character", plain, "no spaces", true},
		{"reserved system prefix", plain, "system_ops", true},
		{"reserved admin prefix", plain, "admin_ops", true},
		{"system user may use reserved prefix", admin, "system_ops", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := eval.EnsureRoleName(tc.actor, tc.role)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, "invalid_role_name", autherr.As(err).Code)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEnsurePermissionGrantable(t *testing.T) {
	eval := NewEvaluator(nil, nil)
	holder := Principal{UserID: 1, Permissions: []string{"user:view"}}
	admin := Principal{UserID: 2, Roles: []string{"super_admin"}}

	// System users may grant anything, protected or not.
	require.NoError(t, eval.EnsurePermissionGrantable(admin, "role:delete"))
	require.NoError(t, eval.EnsurePermissionGrantable(admin, "user:view"))

	// Protected permissions are reserved even for users who hold them.
	err := eval.EnsurePermissionGrantable(holder, "user:impersonate")
	require.Error(t, err)
	assert.Equal(t, "protected_permission", autherr.As(err).Code)

	// Ordinary grants require holding the permission yourself.
	require.NoError(t, eval.EnsurePermissionGrantable(holder, "user:view"))
	err = eval.EnsurePermissionGrantable(holder, "user:update")
	require.Error(t, err)
	assert.Equal(t, "access_denied", autherr.As(err).Code)
}

func TestEnsureSecurityLevel(t *testing.T) {
	eval := NewEvaluator(nil, nil)

	require.NoError(t, eval.EnsureSecurityLevel(5, 4))
	require.NoError(t, eval.EnsureSecurityLevel(10, 1))

	// Equal levels are rejected: an actor cannot touch their own tier.
	err := eval.EnsureSecurityLevel(5, 5)
	require.Error(t, err)
	assert.Equal(t, "insufficient_security_level", autherr.As(err).Code)

	require.Error(t, eval.EnsureSecurityLevel(3, 7))
	// Levels below 1 are invalid regardless of the actor.
	require.Error(t, eval.EnsureSecurityLevel(10, 0))
	require.Error(t, eval.EnsureSecurityLevel(10, -2))
}

func TestCustomConfiguration(t *testing.T) {
	eval := NewEvaluator([]string{"root"}, []string{"vault:open"})

	root := Principal{Roles: []string{"root"}}
	superAdmin := Principal{Roles: []string{"super_admin"}}

	assert.True(t, eval.IsSystem(root))
	// The defaults do not apply once a custom list is supplied.
	assert.False(t, eval.IsSystem(superAdmin))
	assert.True(t, eval.IsProtected("vault:open"))
	assert.False(t, eval.IsProtected("user:impersonate"))
}
