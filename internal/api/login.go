package api

import (
	"context"
	"net/http"
	"time"
)

const pathLogin = "Seguridad/Usuarios/LoginU/"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Pais     int64  `json:"pais,omitempty"`
}

type LoginResponse struct {
	Username string `json:"username"`
	Pais     int64  `json:"pais"`
	Rol      string `json:"rol"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// withoutAuth returns a copy of c that sends no credentials and uses timeout.
func (c *Client) withoutAuth(timeout time.Duration) *Client {
	cp := *c
	cp.auth = nil
	cp.timeout = timeout
	return &cp
}

// Login authenticates against the users endpoint (country dashboards).
func (c *Client) Login(ctx context.Context, in LoginRequest, timeout time.Duration) (LoginResponse, error) {
	var out LoginResponse
	err := c.withoutAuth(timeout).do(ctx, http.MethodPost, pathLogin, in, &out)
	return out, err
}

// ObtainToken exchanges credentials for an access/refresh pair (SimpleJWT).
func (c *Client) ObtainToken(ctx context.Context, tokenURL string, in LoginRequest, timeout time.Duration) (TokenPair, error) {
	in.Pais = 0
	var out TokenPair
	err := c.withoutAuth(timeout).do(ctx, http.MethodPost, tokenURL, in, &out)
	return out, err
}
