package oauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/iliyamo/auth-service/internal/config"
)

const (
	yandexAuthorizeEndpoint = "https://oauth.yandex.com/authorize"
	yandexTokenEndpoint     = "https://oauth.yandex.com/token"
	yandexUserInfoEndpoint  = "https://login.yandex.ru/info?format=json"
)

type yandexProvider struct {
	cfg config.OAuthProviderConfig
}

func (p *yandexProvider) Name() string { return "yandex" }

func (p *yandexProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	return yandexAuthorizeEndpoint + "?" + q.Encode()
}

func (p *yandexProvider) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, yandexTokenEndpoint,
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

func (p *yandexProvider) FetchUserInfo(ctx context.Context, tok Token) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yandexUserInfoEndpoint, nil)
	if err != nil {
		return UserInfo{}, err
	}
	// Yandex expects its own scheme in the Authorization header.
	req.Header.Set("Authorization", "OAuth "+tok.AccessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return UserInfo{}, err
	}
	var body struct {
		ID           string `json:"id"`
		Login        string `json:"login"`
		DefaultEmail string `json:"default_email"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return UserInfo{}, err
	}
	return UserInfo{ProviderUserID: body.ID, Email: body.DefaultEmail, Username: body.Login}, nil
}
