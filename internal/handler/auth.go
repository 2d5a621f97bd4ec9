package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/config"
	mw "github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

// refreshCookieName is the cookie carrying the refresh token. It never
// appears in a response body.
const refreshCookieName = "refresh_token"

// dbTimeout bounds every relational round-trip of a handler.
const dbTimeout = 5 * time.Second

// dummyBcryptHash keeps the login path constant-time for unknown users: the
// password is always run through bcrypt, against this hash when no real one
// exists, so response timing does not reveal whether the login was known.
const dummyBcryptHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthHandler bundles the collaborators of the credential and token flows.
type AuthHandler struct {
	Cfg         config.Config
	DB          *sql.DB
	Users       *repository.UserRepo
	Revocations *repository.RevocationRepo
	Sessions    *service.SessionManager
	SessRepo    *repository.SessionRepo
	JWTs        *service.JWTManager
	Publisher   *service.Publisher
}

func NewAuthHandler(cfg config.Config, db *sql.DB, users *repository.UserRepo, rev *repository.RevocationRepo,
	sessions *service.SessionManager, sessRepo *repository.SessionRepo, jwts *service.JWTManager, pub *service.Publisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, DB: db, Users: users, Revocations: rev, Sessions: sessions, SessRepo: sessRepo, JWTs: jwts, Publisher: pub}
}

// ----- DTOs -----

type registerReq struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type emailReq struct {
	Email string `json:"email"`
}
type verifyReq struct {
	Token string `json:"token"`
}
type resetReq struct {
	Token          string `json:"token"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
}

type userDTO struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
}

func toUserDTO(u model.User) userDTO {
	return userDTO{ID: u.ID, Username: u.Username, Email: u.Email, IsActive: u.IsActive, IsVerified: u.IsVerified}
}

// Register creates a user with the default role. The verification email goes
// out through the user.created event once the transaction has committed.
func (h *AuthHandler) Register(c echo.Context) error {
	if !h.Cfg.RegistrationOpen {
		return fail(c, autherr.PermissionDenied("registration is disabled"))
	}
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, autherr.InvalidPassword("invalid body"))
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		return fail(c, autherr.InvalidPassword("username and email required"))
	}
	if req.Password != req.PasswordRepeat {
		return fail(c, autherr.PasswordMismatch())
	}
	if reason := utils.ValidatePassword(req.Password); reason != "" {
		return fail(c, autherr.InvalidPassword(reason))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if field, err := h.Users.DuplicateField(ctx, req.Username, req.Email); err != nil {
		return fail(c, autherr.Transport(err))
	} else if field == "username" {
		return fail(c, autherr.DuplicateUser("username", req.Username))
	} else if field == "email" {
		return fail(c, autherr.DuplicateUser("email", req.Email))
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err)
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	defer func() { _ = tx.Rollback() }()

	uid, err := h.Users.CreateTx(ctx, tx, req.Email, req.Username, &hash, false)
	if err == repository.ErrDuplicate {
		// A concurrent registration won between the pre-check and the
		// insert; ask again which field collided.
		if field, ferr := h.Users.DuplicateField(ctx, req.Username, req.Email); ferr == nil && field == "email" {
			return fail(c, autherr.DuplicateUser("email", req.Email))
		}
		return fail(c, autherr.DuplicateUser("username", req.Username))
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	var roleID uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM roles WHERE name=? LIMIT 1", model.RoleUser).Scan(&roleID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Users.AddRoleTx(ctx, tx, uid, roleID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := tx.Commit(); err != nil {
		return fail(c, autherr.Transport(err))
	}

	// Post-commit side effects: single-use verify token, then the event.
	verifyToken, err := h.issueSingleUse(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	_ = h.Publisher.Publish(ctx, queue.QueueUserCreated, queue.UserCreatedEvent{
		UserID:      uid,
		Email:       req.Email,
		Username:    req.Username,
		VerifyToken: verifyToken,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{"id": uid, "username": req.Username, "email": req.Email})
}

// Login verifies credentials, materializes the device session and returns a
// token pair. The password check runs for unknown users too, against a dummy
// hash, so the two failure modes share one code path and one timing.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, autherr.WrongLoginData())
	}
	login := strings.TrimSpace(req.Username)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, login)
	hash := dummyBcryptHash
	known := err == nil
	if err != nil && err != repository.ErrNotFound {
		return fail(c, autherr.Transport(err))
	}
	if known && u.PasswordHash != nil {
		hash = *u.PasswordHash
	}
	ok := utils.VerifyPassword(hash, req.Password)
	if !known || u.PasswordHash == nil || !ok || !u.IsActive {
		return fail(c, autherr.WrongLoginData())
	}

	p, err := h.loadPrincipal(ctx, u.ID)
	if err != nil {
		return fail(c, err)
	}

	sess, err := h.Sessions.GetOrCreate(ctx, u.ID,
		c.Request().UserAgent(),
		c.Request().Header.Get("Accept-Language"),
		c.Request().Header.Get("Accept-Encoding"))
	if err != nil {
		return fail(c, autherr.Transport(err))
	}

	pair, err := h.JWTs.IssuePair(ctx, p, sess.DeviceID)
	if err != nil {
		return fail(c, err)
	}
	h.setRefreshCookie(c, pair.Refresh, pair.RefreshExpires)
	return c.JSON(http.StatusOK, echo.Map{"access_token": pair.Access})
}

// Refresh rotates the refresh token from the cookie and returns a new access
// token. The presented token is revoked as part of the rotation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, err := h.refreshFromCookie(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	pair, err := h.JWTs.Refresh(ctx, raw, h.loadPrincipal)
	if err != nil {
		return fail(c, err)
	}
	h.setRefreshCookie(c, pair.Refresh, pair.RefreshExpires)
	return c.JSON(http.StatusOK, echo.Map{"access_token": pair.Access})
}

// Logout revokes the presented refresh token and retires the session of the
// device it was issued to.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, err := h.refreshFromCookie(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	claims, err := h.JWTs.Revoke(ctx, raw)
	if err != nil {
		return fail(c, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return fail(c, err)
	}
	if err := h.SessRepo.DeactivateByDevice(ctx, userID, claims.DeviceID); err != nil {
		return fail(c, autherr.Transport(err))
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// SendVerifyCode issues a fresh single-use verification token for an
// existing user and enqueues the email.
func (h *AuthHandler) SendVerifyCode(c echo.Context) error {
	return h.sendEmailToken(c, queue.QueueVerifyRequested)
}

// SendResetPasswordCode issues a fresh single-use reset token for an
// existing user and enqueues the email. Callers that must avoid user
// enumeration are expected to sit behind the rate limiter and map the 404 to
// a generic response.
func (h *AuthHandler) SendResetPasswordCode(c echo.Context) error {
	return h.sendEmailToken(c, queue.QueuePasswordResetRequested)
}

func (h *AuthHandler) sendEmailToken(c echo.Context, queueName string) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return fail(c, autherr.NotFoundUser())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundUser())
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}

	raw, err := h.issueSingleUse(ctx, u.ID)
	if err != nil {
		return fail(c, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	switch queueName {
	case queue.QueueVerifyRequested:
		_ = h.Publisher.Publish(ctx, queueName, queue.VerifyRequestedEvent{
			UserID: u.ID, Email: u.Email, VerifyToken: raw, RequestedAt: now,
		})
	case queue.QueuePasswordResetRequested:
		_ = h.Publisher.Publish(ctx, queueName, queue.PasswordResetRequestedEvent{
			UserID: u.ID, Email: u.Email, ResetToken: raw, RequestedAt: now,
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyEmail redeems a verification token. Each token works exactly once.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return fail(c, autherr.InvalidToken())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, err := h.Revocations.ConsumeSingleUse(ctx, utils.HashToken(req.Token))
	if err == repository.ErrMissing {
		return fail(c, autherr.InvalidToken())
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	if err := h.Users.SetVerified(ctx, uid); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundUser())
		}
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword redeems a reset token, overwrites the password hash and
// bumps the user cutoff so every token issued before this moment dies.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return fail(c, autherr.InvalidToken())
	}
	if req.Password != req.PasswordRepeat {
		return fail(c, autherr.PasswordMismatch())
	}
	if reason := utils.ValidatePassword(req.Password); reason != "" {
		return fail(c, autherr.InvalidPassword(reason))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, err := h.Revocations.ConsumeSingleUse(ctx, utils.HashToken(req.Token))
	if err == repository.ErrMissing {
		return fail(c, autherr.InvalidToken())
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		if err == repository.ErrNotFound {
			return fail(c, autherr.NotFoundUser())
		}
		return fail(c, autherr.Transport(err))
	}
	if err := h.JWTs.RevokeUser(ctx, uid); err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's record.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err == repository.ErrNotFound {
		return fail(c, autherr.NotFoundUser())
	}
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	return c.JSON(http.StatusOK, toUserDTO(u))
}

// ----- helpers -----

// loadPrincipal builds the authorization snapshot of a user from the
// relational store. Inactive users never get a principal.
func (h *AuthHandler) loadPrincipal(ctx context.Context, userID uint64) (rbac.Principal, error) {
	u, err := h.Users.GetByID(ctx, userID)
	if err == repository.ErrNotFound {
		return rbac.Principal{}, autherr.NotFoundUser()
	}
	if err != nil {
		return rbac.Principal{}, autherr.Transport(err)
	}
	if !u.IsActive {
		return rbac.Principal{}, autherr.InvalidToken()
	}
	roles, level, perms, err := h.Users.LoadAccess(ctx, userID)
	if err != nil {
		return rbac.Principal{}, autherr.Transport(err)
	}
	return rbac.Principal{UserID: userID, SecurityLevel: level, Roles: roles, Permissions: perms}, nil
}

// issueSingleUse creates a raw single-use token, stores its digest with the
// configured TTL and returns the raw value for the email link.
func (h *AuthHandler) issueSingleUse(ctx context.Context, userID uint64) (string, error) {
	raw, err := utils.RandomURLSafe(32)
	if err != nil {
		return "", err
	}
	ttl := time.Duration(h.Cfg.EmailTokenTTLMin) * time.Minute
	if err := h.Revocations.PutSingleUse(ctx, utils.HashToken(raw), userID, ttl); err != nil {
		return "", autherr.Transport(err)
	}
	return raw, nil
}

func (h *AuthHandler) refreshFromCookie(c echo.Context) (string, error) {
	ck, err := c.Cookie(refreshCookieName)
	if err != nil || ck.Value == "" {
		return "", autherr.InvalidToken()
	}
	return ck.Value, nil
}

// setRefreshCookie writes the refresh cookie with the documented attributes.
// SameSite relaxes to None outside production so browser-based development
// setups on another origin can still send it.
func (h *AuthHandler) setRefreshCookie(c echo.Context, value string, expires time.Time) {
	sameSite := http.SameSiteStrictMode
	if h.Cfg.Env == "dev" {
		sameSite = http.SameSiteNoneMode
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: sameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}
