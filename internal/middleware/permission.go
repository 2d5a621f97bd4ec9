package middleware // permission guard layered on top of Auth

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/rbac"
)

// RequirePermissions returns a middleware that aborts the request with 403
// unless the authenticated principal passes the evaluator's permission check
// for the given set. System users pass regardless of the set. It assumes the
// Auth middleware already ran and stored the principal in the context.
func RequirePermissions(eval *rbac.Evaluator, required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return writeError(c, autherr.NotAuthenticated())
			}
			if !eval.HasPermissions(p, required) {
				return writeError(c, autherr.AccessDenied(required))
			}
			return next(c)
		}
	}
}
