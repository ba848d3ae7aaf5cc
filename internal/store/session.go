package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emundo/bookstock/internal/session"
)

type sessionRow struct {
	Username      string        `db:"username"`
	Pais          int64         `db:"pais"`
	Rol           string        `db:"rol"`
	Access        string        `db:"access"`
	Refresh       string        `db:"refresh"`
	AccessExpires sql.NullInt64 `db:"access_expires"`
	CreatedAt     int64         `db:"created_at"`
}

// Sessions implements session.Store. Only one user is logged in at a time.
type Sessions struct {
	s *Store
}

func (s *Store) Sessions() *Sessions { return &Sessions{s: s} }

func (r *Sessions) SaveSession(ctx context.Context, u session.User) error {
	var exp sql.NullInt64
	if u.AccessExpires != nil {
		exp = sql.NullInt64{Int64: u.AccessExpires.Unix(), Valid: true}
	}
	_, err := r.s.DB.ExecContext(ctx, `
INSERT INTO sessions(id,username,pais,rol,access,refresh,access_expires,created_at)
VALUES(1,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  username=excluded.username, pais=excluded.pais, rol=excluded.rol,
  access=excluded.access, refresh=excluded.refresh,
  access_expires=excluded.access_expires, created_at=excluded.created_at`,
		u.Username, u.Pais, u.Rol, u.Access, u.Refresh, exp, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns nil when nobody is logged in.
func (r *Sessions) LoadSession(ctx context.Context) (*session.User, error) {
	var row sessionRow
	err := r.s.DB.GetContext(ctx, &row,
		`SELECT username,pais,rol,access,refresh,access_expires,created_at FROM sessions WHERE id=1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	u := &session.User{
		Username:  row.Username,
		Pais:      row.Pais,
		Rol:       row.Rol,
		Access:    row.Access,
		Refresh:   row.Refresh,
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
	}
	if row.AccessExpires.Valid {
		t := time.Unix(row.AccessExpires.Int64, 0).UTC()
		u.AccessExpires = &t
	}
	return u, nil
}

func (r *Sessions) DeleteSession(ctx context.Context) error {
	_, err := r.s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=1`)
	return err
}

func (r *Sessions) SaveRemembered(ctx context.Context, username string) error {
	_, err := r.s.DB.ExecContext(ctx, `
INSERT INTO remembered_user(id,username,saved_at) VALUES(1,?,strftime('%s','now'))
ON CONFLICT(id) DO UPDATE SET username=excluded.username, saved_at=excluded.saved_at`, username)
	return err
}

func (r *Sessions) LoadRemembered(ctx context.Context) (string, error) {
	var name string
	err := r.s.DB.GetContext(ctx, &name, `SELECT username FROM remembered_user WHERE id=1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

func (r *Sessions) ForgetRemembered(ctx context.Context) error {
	_, err := r.s.DB.ExecContext(ctx, `DELETE FROM remembered_user WHERE id=1`)
	return err
}
