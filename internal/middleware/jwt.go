package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/token"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxPrincipal = "principal" // rbac.Principal of the caller
	CtxClaims    = "claims"    // *token.Claims of the access token
)

// Auth returns an Echo middleware that validates a Bearer access token
// through the JWT manager (signature, expiry, revocation and invalidation
// cut-offs) and injects the resulting principal into the request context.
// Handlers access it via Principal(c).
func Auth(jwts *service.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return writeError(c, autherr.NotAuthenticated())
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			if raw == "" {
				return writeError(c, autherr.NotAuthenticated())
			}

			claims, err := jwts.Validate(c.Request().Context(), raw, token.TypeAccess)
			if err != nil {
				return writeError(c, err)
			}
			userID, err := claims.UserID()
			if err != nil {
				return writeError(c, err)
			}

			c.Set(CtxPrincipal, rbac.Principal{
				UserID:        userID,
				SecurityLevel: claims.SecurityLevel,
				Roles:         claims.Roles,
				Permissions:   claims.Permissions,
			})
			c.Set(CtxClaims, claims)
			return next(c)
		}
	}
}

// Principal extracts the authenticated principal set by Auth. The boolean is
// false on routes that were not wrapped by it.
func Principal(c echo.Context) (rbac.Principal, bool) {
	p, ok := c.Get(CtxPrincipal).(rbac.Principal)
	return p, ok
}

// Claims extracts the validated access-token claims set by Auth.
func Claims(c echo.Context) (*token.Claims, bool) {
	cl, ok := c.Get(CtxClaims).(*token.Claims)
	return cl, ok
}

// writeError renders a taxonomy error as the documented envelope. Non
// taxonomy errors become an opaque 500.
func writeError(c echo.Context, err error) error {
	ae := autherr.As(err)
	if ae == nil {
		ae = &autherr.Error{Code: "internal", Status: http.StatusInternalServerError, Message: "internal error"}
	} else if cause := ae.Unwrap(); cause != nil {
		c.Logger().Warnf("%s: %v", ae.Code, cause)
	}
	return c.JSON(ae.Status, echo.Map{
		"error": echo.Map{
			"code":    ae.Code,
			"message": ae.Message,
			"detail":  ae.Detail,
		},
		"status":     ae.Status,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
