package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emundo/bookstock/internal/api"
)

type memStore struct {
	session    *User
	remembered string
}

func (s *memStore) SaveSession(_ context.Context, u User) error {
	s.session = &u
	return nil
}
func (s *memStore) LoadSession(context.Context) (*User, error) { return s.session, nil }
func (s *memStore) DeleteSession(context.Context) error {
	s.session = nil
	return nil
}
func (s *memStore) SaveRemembered(_ context.Context, n string) error {
	s.remembered = n
	return nil
}
func (s *memStore) LoadRemembered(context.Context) (string, error) { return s.remembered, nil }
func (s *memStore) ForgetRemembered(context.Context) error {
	s.remembered = ""
	return nil
}

type fakeRemote struct {
	calls   int
	login   api.LoginResponse
	pair    api.TokenPair
	err     error
	lastReq api.LoginRequest
	timeout time.Duration
}

func (f *fakeRemote) Login(_ context.Context, in api.LoginRequest, timeout time.Duration) (api.LoginResponse, error) {
	f.calls++
	f.lastReq, f.timeout = in, timeout
	return f.login, f.err
}

func (f *fakeRemote) ObtainToken(_ context.Context, _ string, in api.LoginRequest, timeout time.Duration) (api.TokenPair, error) {
	f.calls++
	f.lastReq, f.timeout = in, timeout
	return f.pair, f.err
}

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newManager(mode Mode, r *fakeRemote, s *memStore) *Manager {
	m := NewManager(r, s, Config{Mode: mode, TokenURL: "http://127.0.0.1:8000/api/token/"})
	m.now = func() time.Time { return t0 }
	return m
}

func TestLoginValidatesBeforeCalling(t *testing.T) {
	r := &fakeRemote{}
	m := newManager(ModeCountry, r, &memStore{})
	cases := []struct {
		c    Credentials
		code Code
		msg  string
	}{
		{Credentials{Username: "  ", Password: "x", Pais: 1}, MissingUsername, "Por favor, ingresa tu usuario"},
		{Credentials{Username: "ana", Password: " ", Pais: 1}, MissingPassword, "Por favor, ingresa tu contraseña"},
		{Credentials{Username: "ana", Password: "x"}, MissingCountry, "Debes seleccionar un país"},
	}
	for _, tc := range cases {
		_, err := m.Login(context.Background(), tc.c)
		var le *LoginError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, tc.code, le.Code)
		assert.Equal(t, tc.msg, le.Error())
	}
	assert.Zero(t, r.calls)
}

func TestCountryLoginPersistsAndRemembers(t *testing.T) {
	r := &fakeRemote{login: api.LoginResponse{Username: "ana", Pais: 1, Rol: "admin"}}
	s := &memStore{}
	m := newManager(ModeCountry, r, s)

	u, err := m.Login(context.Background(), Credentials{Username: " ana ", Password: "secreto", Pais: 1, Remember: true})
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Rol)
	assert.Equal(t, api.LoginRequest{Username: "ana", Password: "secreto", Pais: 1}, r.lastReq)
	assert.Equal(t, 10*time.Second, r.timeout)
	require.NotNil(t, s.session)
	assert.Equal(t, t0, s.session.CreatedAt)
	assert.Equal(t, "ana", s.remembered)
	assert.Equal(t, "¡Bienvenido ana!", Welcome(u))

	_, err = m.Login(context.Background(), Credentials{Username: "ana", Password: "secreto", Pais: 1})
	require.NoError(t, err)
	assert.Empty(t, s.remembered)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	s := &memStore{session: &User{Username: "ana", CreatedAt: t0.Add(-23 * time.Hour)}}
	m := newManager(ModeCountry, &fakeRemote{}, s)

	u, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, "hace 23 horas", m.Age(u))

	assert.Equal(t, "hace 5 minutos", m.Age(User{CreatedAt: t0.Add(-5 * time.Minute)}))

	m.now = func() time.Time { return t0.Add(time.Hour) }
	_, err = m.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, m.IsAuthenticated(context.Background()))
}

func TestLogout(t *testing.T) {
	s := &memStore{session: &User{Username: "ana", CreatedAt: t0}}
	m := newManager(ModeCountry, &fakeRemote{}, s)
	require.True(t, m.IsAuthenticated(context.Background()))

	require.NoError(t, m.Logout(context.Background()))
	assert.Nil(t, s.session)
	assert.False(t, m.IsAuthenticated(context.Background()))
}

func TestLoginStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code Code
		msg  string
	}{
		{&api.StatusError{Status: 401}, InvalidCredentials, "Credenciales inválidas. Por favor, verifica tus datos."},
		{&api.StatusError{Status: 400}, BadRequest, "Datos de solicitud incorrectos."},
		{&api.StatusError{Status: 503}, ServerError, "Error del servidor. Por favor, intenta más tarde."},
		{&api.StatusError{Status: 403, Body: `{"error":"Usuario inactivo"}`}, Rejected, "Usuario inactivo"},
		{&api.StatusError{Status: 403, Body: `{}`}, Rejected, "Error desconocido"},
		{&api.StatusError{Status: 404, Body: `<html>`}, Rejected, "Error en la respuesta del servidor"},
		{&api.NetworkError{Err: context.DeadlineExceeded}, Timeout, "Tiempo de espera agotado. Verifica tu conexión."},
		{&api.NetworkError{Err: errors.New("connection refused")}, Unreachable, "Error de conexión al servidor"},
	}
	for _, tc := range cases {
		s := &memStore{}
		m := newManager(ModeCountry, &fakeRemote{err: tc.err}, s)
		_, err := m.Login(context.Background(), Credentials{Username: "ana", Password: "x", Pais: 2})
		var le *LoginError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, tc.code, le.Code)
		assert.Equal(t, tc.msg, le.Message)
		assert.Nil(t, s.session)
	}
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "user_id": 3})
	s, err := tok.SignedString([]byte("no-importa"))
	require.NoError(t, err)
	return s
}

func TestTokenLoginReadsExpiry(t *testing.T) {
	access := signed(t, t0.Add(5*time.Minute))
	r := &fakeRemote{pair: api.TokenPair{Access: access, Refresh: "r"}}
	m := newManager(ModeToken, r, &memStore{})

	u, err := m.Login(context.Background(), Credentials{Username: "ana", Password: "x"})
	require.NoError(t, err)
	require.NotNil(t, u.AccessExpires)
	assert.Equal(t, t0.Add(5*time.Minute).Unix(), u.AccessExpires.Unix())
	assert.Zero(t, r.lastReq.Pais)

	tok, err := m.AccessToken()
	require.NoError(t, err)
	assert.Equal(t, access, tok)

	m.now = func() time.Time { return t0.Add(6 * time.Minute) }
	_, err = m.AccessToken()
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, IsNotAuthenticated(err))
}

func TestTokenLoginNeedsBothTokens(t *testing.T) {
	m := newManager(ModeToken, &fakeRemote{pair: api.TokenPair{Access: "opaque"}}, &memStore{})
	_, err := m.Login(context.Background(), Credentials{Username: "ana", Password: "x"})
	var le *LoginError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, NoTokens, le.Code)
}

func TestOpaqueTokenHasNoExpiry(t *testing.T) {
	m := newManager(ModeToken, &fakeRemote{pair: api.TokenPair{Access: "opaque", Refresh: "r"}}, &memStore{})
	u, err := m.Login(context.Background(), Credentials{Username: "ana", Password: "x"})
	require.NoError(t, err)
	assert.Nil(t, u.AccessExpires)
}

func TestCountries(t *testing.T) {
	c, err := CountryByID(3)
	require.NoError(t, err)
	assert.Equal(t, "Costa Rica", c.Nombre)
	_, err = CountryByID(9)
	assert.ErrorContains(t, err, MsgNoDashboard)
	assert.Len(t, Countries(), 4)
}
