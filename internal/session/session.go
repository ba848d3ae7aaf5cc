// Package session logs users in against the remote API and keeps the current
// user locally for a fixed time window.
package session

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/emundo/bookstock/internal/api"
)

type Mode string

const (
	// ModeCountry posts {username, password, pais} to the users endpoint.
	ModeCountry Mode = "pais"
	// ModeToken exchanges {username, password} for an access/refresh pair.
	ModeToken Mode = "token"
)

type User struct {
	Username      string
	Pais          int64
	Rol           string
	Access        string
	Refresh       string
	AccessExpires *time.Time
	CreatedAt     time.Time
}

type Credentials struct {
	Username string
	Password string
	Pais     int64
	Remember bool
}

// Store persists the current user and the remembered username.
type Store interface {
	SaveSession(ctx context.Context, u User) error
	LoadSession(ctx context.Context) (*User, error)
	DeleteSession(ctx context.Context) error
	SaveRemembered(ctx context.Context, username string) error
	LoadRemembered(ctx context.Context) (string, error)
	ForgetRemembered(ctx context.Context) error
}

// Remote is the part of the API client used to log in.
type Remote interface {
	Login(ctx context.Context, in api.LoginRequest, timeout time.Duration) (api.LoginResponse, error)
	ObtainToken(ctx context.Context, tokenURL string, in api.LoginRequest, timeout time.Duration) (api.TokenPair, error)
}

type Config struct {
	Mode     Mode
	TokenURL string
	Timeout  time.Duration
	TTL      time.Duration
}

type Manager struct {
	remote Remote
	store  Store
	cfg    Config
	now    func() time.Time

	mu      sync.RWMutex
	current *User
	loaded  bool
}

func NewManager(remote Remote, store Store, cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeCountry
	}
	return &Manager{remote: remote, store: store, cfg: cfg, now: time.Now}
}

func (m *Manager) Mode() Mode { return m.cfg.Mode }

func (m *Manager) validate(c Credentials) error {
	if c.Username == "" {
		return newLoginError(MissingUsername)
	}
	if c.Password == "" {
		return newLoginError(MissingPassword)
	}
	if m.cfg.Mode == ModeCountry && c.Pais <= 0 {
		return newLoginError(MissingCountry)
	}
	return nil
}

// Login checks the form, authenticates remotely and persists the new session.
// A failed login leaves any previous session untouched.
func (m *Manager) Login(ctx context.Context, c Credentials) (User, error) {
	c.Username = strings.TrimSpace(c.Username)
	c.Password = strings.TrimSpace(c.Password)
	if err := m.validate(c); err != nil {
		return User{}, err
	}
	req := api.LoginRequest{Username: c.Username, Password: c.Password, Pais: c.Pais}

	u := User{Username: c.Username, CreatedAt: m.now()}
	switch m.cfg.Mode {
	case ModeToken:
		pair, err := m.remote.ObtainToken(ctx, m.cfg.TokenURL, req, m.cfg.Timeout)
		if err != nil {
			return User{}, classify(err)
		}
		if pair.Access == "" || pair.Refresh == "" {
			return User{}, newLoginError(NoTokens)
		}
		u.Access, u.Refresh = pair.Access, pair.Refresh
		u.AccessExpires = tokenExpiry(pair.Access)
	default:
		res, err := m.remote.Login(ctx, req, m.cfg.Timeout)
		if err != nil {
			return User{}, classify(err)
		}
		if res.Username != "" {
			u.Username = res.Username
		}
		u.Pais, u.Rol = res.Pais, res.Rol
	}

	if err := m.store.SaveSession(ctx, u); err != nil {
		return User{}, err
	}
	if c.Remember {
		err := m.store.SaveRemembered(ctx, u.Username)
		if err != nil {
			log.Warn().Err(err).Msg("session: remember user")
		}
	} else if err := m.store.ForgetRemembered(ctx); err != nil {
		log.Warn().Err(err).Msg("session: forget remembered user")
	}

	m.mu.Lock()
	m.current, m.loaded = &u, true
	m.mu.Unlock()
	log.Info().Str("user", u.Username).Int64("pais", u.Pais).Str("mode", string(m.cfg.Mode)).Msg("login ok")
	return u, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the API
// is the one that verifies. Opaque tokens have no expiry.
func tokenExpiry(access string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current, m.loaded = nil, true
	m.mu.Unlock()
	return m.store.DeleteSession(ctx)
}

// Current returns the session user, or ErrNotAuthenticated when there is none
// or it is older than the TTL.
func (m *Manager) Current(ctx context.Context) (User, error) {
	m.mu.RLock()
	u, loaded := m.current, m.loaded
	m.mu.RUnlock()

	if !loaded {
		var err error
		u, err = m.store.LoadSession(ctx)
		if err != nil {
			return User{}, err
		}
		m.mu.Lock()
		m.current, m.loaded = u, true
		m.mu.Unlock()
	}
	if u == nil || m.now().Sub(u.CreatedAt) >= m.cfg.TTL {
		return User{}, ErrNotAuthenticated
	}
	return *u, nil
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, err := m.Current(ctx)
	return err == nil
}

// AccessToken makes the manager an api.TokenSource.
func (m *Manager) AccessToken() (string, error) {
	u, err := m.Current(context.Background())
	if err != nil {
		return "", err
	}
	if u.AccessExpires != nil && !m.now().Before(*u.AccessExpires) {
		return "", ErrTokenExpired
	}
	if u.Access == "" {
		return "", api.ErrNoToken
	}
	return u.Access, nil
}

// Remembered is the username to prefill, "" when none.
func (m *Manager) Remembered(ctx context.Context) (string, error) {
	return m.store.LoadRemembered(ctx)
}

var spanishMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "ahora", DivBy: time.Second},
	{D: 2 * time.Second, Format: "%s 1 segundo", DivBy: 1},
	{D: time.Minute, Format: "%s %d segundos", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "%s 1 minuto", DivBy: 1},
	{D: time.Hour, Format: "%s %d minutos", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "%s 1 hora", DivBy: 1},
	{D: humanize.Day, Format: "%s %d horas", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "%s 1 día", DivBy: 1},
	{D: humanize.Week, Format: "%s %d días", DivBy: humanize.Day},
	{D: 2 * humanize.Week, Format: "%s 1 semana", DivBy: 1},
	{D: humanize.Month, Format: "%s %d semanas", DivBy: humanize.Week},
	{D: 2 * humanize.Month, Format: "%s 1 mes", DivBy: 1},
	{D: humanize.Year, Format: "%s %d meses", DivBy: humanize.Month},
	{D: 2 * humanize.Year, Format: "%s 1 año", DivBy: 1},
	{D: math.MaxInt64, Format: "%s mucho tiempo", DivBy: 1},
}

// Age renders how long ago the session started, e.g. "hace 3 horas".
func (m *Manager) Age(u User) string {
	return humanize.CustomRelTime(u.CreatedAt, m.now(), "hace", "dentro de", spanishMagnitudes)
}

// IsNotAuthenticated reports whether err means the user has to log in again.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenExpired) || errors.Is(err, api.ErrNoToken)
}
