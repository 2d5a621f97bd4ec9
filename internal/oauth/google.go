package oauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/iliyamo/auth-service/internal/config"
)

const (
	googleAuthorizeEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint     = "https://oauth2.googleapis.com/token"
	googleUserInfoEndpoint  = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleProvider struct {
	cfg config.OAuthProviderConfig
}

func (p *googleProvider) Name() string { return "google" }

func (p *googleProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("access_type", "offline")
	return googleAuthorizeEndpoint + "?" + q.Encode()
}

func (p *googleProvider) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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

func (p *googleProvider) FetchUserInfo(ctx context.Context, tok Token) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoEndpoint, nil)
	if err != nil {
		return UserInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return UserInfo{}, err
	}
	var body struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return UserInfo{}, err
	}
	return UserInfo{ProviderUserID: body.Sub, Email: body.Email, Username: body.Name}, nil
}
