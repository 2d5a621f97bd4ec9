package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/token"
)

// openRevocations is a RevocationStore with nothing revoked.
type openRevocations struct{}

func (openRevocations) MarkJTI(context.Context, string, time.Duration) error { return nil }
func (openRevocations) IsRevoked(context.Context, string) (bool, error)      { return false, nil }
func (openRevocations) MarkUser(context.Context, uint64, time.Duration) error {
	return nil
}
func (openRevocations) UserCutoff(context.Context, uint64) (int64, error) { return 0, nil }
func (openRevocations) InvalidationCutoff(context.Context, []string, []string) (int64, error) {
	return 0, nil
}

type allDevicesActive struct{}

func (allDevicesActive) IsActiveDevice(context.Context, uint64, string) (bool, error) {
	return true, nil
}

func newTestJWTManager() *service.JWTManager {
	return service.NewJWTManager(token.NewCodec("test-secret"), openRevocations{}, allDevicesActive{},
		30*time.Minute, 24*time.Hour)
}

func protectedApp(jwts *service.JWTManager, eval *rbac.Evaluator, required ...string) *echo.Echo {
	e := echo.New()
	handler := func(c echo.Context) error {
		p, ok := Principal(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, echo.Map{"user_id": p.UserID})
	}
	mws := []echo.MiddlewareFunc{Auth(jwts)}
	if len(required) > 0 {
		mws = append(mws, RequirePermissions(eval, required...))
	}
	e.GET("/protected", handler, mws...)
	return e
}

func TestAuthMiddleware(t *testing.T) {
	jwts := newTestJWTManager()
	e := protectedApp(jwts, rbac.NewEvaluator(nil, nil))

	p := rbac.Principal{UserID: 42, SecurityLevel: 1, Roles: []string{"user"}}
	pair, err := jwts.IssuePair(context.Background(), p, "dev-1")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Access)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"user_id":42`)
	})

	t.Run("claims carry the token device", func(t *testing.T) {
		e := echo.New()
		e.GET("/claims", func(c echo.Context) error {
			claims, ok := Claims(c)
			if !ok {
				return c.NoContent(http.StatusInternalServerError)
			}
			return c.JSON(http.StatusOK, echo.Map{"device_id": claims.DeviceID})
		}, Auth(jwts))
		req := httptest.NewRequest(http.MethodGet, "/claims", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Access)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"device_id":"dev-1"`)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_authenticated")
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_token")
	})

	t.Run("refresh token rejected on access route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Refresh)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRequirePermissionsMiddleware(t *testing.T) {
	jwts := newTestJWTManager()
	eval := rbac.NewEvaluator(nil, nil)
	e := protectedApp(jwts, eval, "user:view")

	issue := func(t *testing.T, p rbac.Principal) string {
		pair, err := jwts.IssuePair(context.Background(), p, "dev-1")
		require.NoError(t, err)
		return pair.Access
	}

	t.Run("holder passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, rbac.Principal{UserID: 1, Permissions: []string{"user:view"}}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("system role bypasses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, rbac.Principal{UserID: 2, Roles: []string{"super_admin"}}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing permission rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, rbac.Principal{UserID: 3, Permissions: []string{"user:update"}}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "access_denied")
		assert.Contains(t, rec.Body.String(), "user:view")
	})
}
