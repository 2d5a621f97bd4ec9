package oauth

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/auth-service/internal/config"
)

const (
	githubAuthorizeEndpoint = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint     = "https://github.com/login/oauth/access_token"
	githubUserEndpoint      = "https://api.github.com/user"
	githubEmailsEndpoint    = "https://api.github.com/user/emails"
)

type githubProvider struct {
	cfg config.OAuthProviderConfig
}

func (p *githubProvider) Name() string { return "github" }

func (p *githubProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("scope", "read:user user:email")
	q.Set("state", state)
	return githubAuthorizeEndpoint + "?" + q.Encode()
}

func (p *githubProvider) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, githubTokenEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Without this GitHub answers with a query string instead of JSON.
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := decodeJSON(resp, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *githubProvider) FetchUserInfo(ctx context.Context, tok Token) (UserInfo, error) {
	var body struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := p.get(ctx, tok, githubUserEndpoint, &body); err != nil {
		return UserInfo{}, err
	}

	email := body.Email
	if email == "" {
		// The profile email is often private; the emails endpoint lists
		// them all and marks the primary verified one.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := p.get(ctx, tok, githubEmailsEndpoint, &emails); err != nil {
			return UserInfo{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	return UserInfo{
		ProviderUserID: strconv.FormatInt(body.ID, 10),
		Email:          email,
		Username:       body.Login,
	}, nil
}

func (p *githubProvider) get(ctx context.Context, tok Token, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}
