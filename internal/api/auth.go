package api

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
)

var ErrNoToken = errors.New("no access token: log in first")

// TokenSource returns the current access token (usually the persisted session).
type TokenSource interface {
	AccessToken() (string, error)
}

// BearerAuth sends "Authorization: Bearer <access>".
type BearerAuth struct {
	Tokens TokenSource
}

func (a *BearerAuth) Apply(req *http.Request) error {
	if a.Tokens == nil {
		return ErrNoToken
	}
	tok, err := a.Tokens.AccessToken()
	if err != nil {
		return err
	}
	if tok == "" {
		return ErrNoToken
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// CookieAuth relies on the server session cookie kept in Jar (credentials: include).
type CookieAuth struct {
	Jar http.CookieJar
}

func NewCookieAuth() (*CookieAuth, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &CookieAuth{Jar: jar}, nil
}

func (a *CookieAuth) Apply(*http.Request) error { return nil }
