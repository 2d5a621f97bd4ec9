package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/service"
)

// Handlers bundles every handler the router mounts. Keeping them in one
// struct keeps Register's signature stable as endpoints are added.
type Handlers struct {
	Auth        *handler.AuthHandler
	OAuth       *handler.OAuthHandler
	Users       *handler.UserHandler
	Roles       *handler.RoleHandler
	Permissions *handler.PermissionHandler
	Sessions    *handler.SessionHandler
}

// Register mounts all routes on the provided Echo instance. Unauthenticated
// operations live under /v1/auth and /v1/oauth; everything else requires a
// valid access token, with permission middleware applied per group.
func Register(e *echo.Echo, h Handlers, jwts *service.JWTManager, eval *rbac.Evaluator, rdb *redis.Client) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Requests to the open auth endpoints are throttled per client IP so a
	// single host cannot brute-force credentials or mint registrations.
	ipLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, middleware.IPRouteKey)
	// Email-sending endpoints are additionally throttled per target address.
	emailLimit := middleware.NewTokenBucket(config.LoadEmailRateLimitConfig(), rdb, middleware.EmailKey)

	g := e.Group("/v1/auth", ipLimit)
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)
	g.POST("/send_verify_code", h.Auth.SendVerifyCode, emailLimit)
	g.POST("/send_reset_password_code", h.Auth.SendResetPasswordCode, emailLimit)
	g.POST("/verify_email", h.Auth.VerifyEmail)
	g.POST("/reset_password", h.Auth.ResetPassword)

	// The authorize endpoint accepts an optional bearer token so the same
	// route serves both login and connect flows; the handler inspects the
	// header itself instead of going through the auth middleware.
	o := e.Group("/v1/oauth", ipLimit)
	o.GET("/:provider/authorize", h.OAuth.Authorize)
	o.POST("/login", h.OAuth.Login)

	// Everything below requires a valid access token.
	auth := e.Group("/v1", middleware.Auth(jwts))
	auth.GET("/me", h.Auth.Me)
	auth.POST("/oauth/connect", h.OAuth.Connect)
	auth.GET("/oauth/accounts", h.OAuth.ListAccounts)

	auth.GET("/sessions", h.Sessions.List)
	auth.DELETE("/sessions/:id", h.Sessions.Deactivate)

	users := auth.Group("/users")
	users.GET("", h.Users.List, middleware.RequirePermissions(eval, "user:view"))
	users.POST("/:id/roles", h.Users.AssignRole, middleware.RequirePermissions(eval, "role:assign"))
	users.DELETE("/:id/roles/:name", h.Users.RemoveRole, middleware.RequirePermissions(eval, "role:remove"))
	users.PATCH("/:id/active", h.Users.SetActive, middleware.RequirePermissions(eval, "user:update"))
	users.POST("/:id/permissions", h.Users.AddPermissions, middleware.RequirePermissions(eval, "user:update"))
	users.DELETE("/:id/permissions", h.Users.RemovePermissions, middleware.RequirePermissions(eval, "user:update"))

	roles := auth.Group("/roles")
	roles.GET("", h.Roles.List, middleware.RequirePermissions(eval, "role:view"))
	roles.GET("/:name", h.Roles.Get, middleware.RequirePermissions(eval, "role:view"))
	roles.POST("", h.Roles.Create, middleware.RequirePermissions(eval, "role:create"))
	roles.PATCH("/:name", h.Roles.Update, middleware.RequirePermissions(eval, "role:update"))
	roles.DELETE("/:name", h.Roles.Delete, middleware.RequirePermissions(eval, "role:delete"))
	roles.POST("/:name/permissions", h.Roles.AddPermission, middleware.RequirePermissions(eval, "role:update"))
	roles.DELETE("/:name/permissions/:permission", h.Roles.RemovePermission, middleware.RequirePermissions(eval, "role:update"))

	perms := auth.Group("/permissions")
	perms.GET("", h.Permissions.List, middleware.RequirePermissions(eval, "permission:view"))
	perms.POST("", h.Permissions.Create, middleware.RequirePermissions(eval, "permission:create"))
	perms.DELETE("/:name", h.Permissions.Delete, middleware.RequirePermissions(eval, "permission:delete"))
}
