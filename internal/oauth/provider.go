// Package oauth implements the authorization-code exchange against the
// supported providers and the account linking rules on top of it.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/config"
)

// Token is the provider token obtained from the code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserInfo is the provider-neutral identity the broker works with. Username
// may be empty; the broker falls back to the email local part.
type UserInfo struct {
	ProviderUserID string
	Email          string
	Username       string
}

// Provider is the capability set every OAuth provider implements.
type Provider interface {
	Name() string
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (Token, error)
	FetchUserInfo(ctx context.Context, tok Token) (UserInfo, error)
}

// httpClient is the process-wide pooled client for provider calls: 5 s to
// connect, 10 s for the whole exchange.
var httpClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	},
}

// decodeJSON reads and unmarshals a provider response, failing on non-2xx.
func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// Registry maps provider names to implementations. Providers without
// configured credentials are not registered at all.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds the registry from the configured provider credentials.
func NewRegistry(cfg map[string]config.OAuthProviderConfig) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	if c := cfg["google"]; c.Enabled() {
		r.providers["google"] = &googleProvider{cfg: c}
	}
	if c := cfg["yandex"]; c.Enabled() {
		r.providers["yandex"] = &yandexProvider{cfg: c}
	}
	if c := cfg["github"]; c.Enabled() {
		r.providers["github"] = &githubProvider{cfg: c}
	}
	return r
}

// Register adds or replaces a provider. Used by tests to install fakes.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get resolves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, autherr.UnknownOAuthProvider(name)
	}
	return p, nil
}
