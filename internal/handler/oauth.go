package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
	mw "github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/oauth"
	"github.com/iliyamo/auth-service/internal/repository"
)

// OAuthHandler exposes the provider authorization and code-exchange flows.
// Login issues a full token pair like password login; Connect only links the
// external account to the already authenticated user.
type OAuthHandler struct {
	Auth     *AuthHandler
	Broker   *oauth.Broker
	Accounts *repository.OAuthAccountRepo
}

func NewOAuthHandler(auth *AuthHandler, broker *oauth.Broker, accounts *repository.OAuthAccountRepo) *OAuthHandler {
	return &OAuthHandler{Auth: auth, Broker: broker, Accounts: accounts}
}

type oauthCallbackReq struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	State    string `json:"state"`
}

// Authorize returns the provider consent URL. A bearer token is optional:
// when present the generated state marks a connect flow for that user,
// otherwise a login flow.
func (h *OAuthHandler) Authorize(c echo.Context) error {
	var initiator uint64
	if raw := bearerToken(c); raw != "" {
		claims, err := h.Auth.JWTs.Validate(c.Request().Context(), raw, "access")
		if err != nil {
			return fail(c, err)
		}
		initiator, err = claims.UserID()
		if err != nil {
			return fail(c, autherr.InvalidToken())
		}
	}

	url, err := h.Broker.AuthorizeURL(c.Request().Context(), c.Param("provider"), initiator)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"authorize_url": url})
}

// Login exchanges the provider code for a local identity and issues tokens.
// A brand-new user may be created here from the provider profile.
func (h *OAuthHandler) Login(c echo.Context) error {
	var req oauthCallbackReq
	if err := c.Bind(&req); err != nil {
		return fail(c, autherr.OAuthStateNotFound())
	}

	ctx := c.Request().Context()
	res, err := h.Broker.Callback(ctx, req.Provider, req.Code, req.State)
	if err != nil {
		return fail(c, err)
	}
	if res.Connected {
		// The state belonged to a connect flow; nothing to log in.
		return c.JSON(http.StatusOK, echo.Map{"connected": true, "user_id": res.UserID})
	}

	principal, err := h.Auth.loadPrincipal(ctx, res.UserID)
	if err != nil {
		return fail(c, err)
	}
	session, err := h.Auth.Sessions.GetOrCreate(ctx, res.UserID,
		c.Request().UserAgent(),
		c.Request().Header.Get("Accept-Language"),
		c.Request().Header.Get("Accept-Encoding"))
	if err != nil {
		return fail(c, err)
	}
	pair, err := h.Auth.JWTs.IssuePair(ctx, principal, session.DeviceID)
	if err != nil {
		return fail(c, err)
	}
	h.Auth.setRefreshCookie(c, pair.Refresh, pair.RefreshExpires)

	status := http.StatusOK
	if res.CreatedUser {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"access_token": pair.Access, "user_id": res.UserID})
}

// Connect links a provider account to the authenticated caller.
func (h *OAuthHandler) Connect(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}
	var req oauthCallbackReq
	if err := c.Bind(&req); err != nil {
		return fail(c, autherr.OAuthStateNotFound())
	}

	res, err := h.Broker.Callback(c.Request().Context(), req.Provider, req.Code, req.State)
	if err != nil {
		return fail(c, err)
	}
	if !res.Connected || res.UserID != actor.UserID {
		// State issued for a different flow or a different user.
		return fail(c, autherr.OAuthStateNotFound())
	}
	return c.JSON(http.StatusOK, echo.Map{"connected": true, "provider": req.Provider})
}

type oauthAccountDTO struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	LinkedAt string `json:"linked_at"`
}

// ListAccounts returns the provider accounts linked to the caller.
func (h *OAuthHandler) ListAccounts(c echo.Context) error {
	actor, ok := mw.Principal(c)
	if !ok {
		return fail(c, autherr.NotAuthenticated())
	}

	accounts, err := h.Accounts.ListByUser(c.Request().Context(), actor.UserID)
	if err != nil {
		return fail(c, autherr.Transport(err))
	}
	items := make([]oauthAccountDTO, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, oauthAccountDTO{
			Provider: a.Provider,
			Email:    a.ProviderEmail,
			IsActive: a.IsActive,
			LinkedAt: a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"accounts": items})
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
