package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emundo/bookstock/internal/movement"
	"github.com/emundo/bookstock/internal/session"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverModernc, filepath.Join(t.TempDir(), "bookstock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "x")
	assert.ErrorContains(t, err, "no soportado")
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t).Sessions()

	u, err := r.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	exp := created.Add(5 * time.Minute)
	require.NoError(t, r.SaveSession(ctx, session.User{Username: "ana", Pais: 1, Rol: "admin", CreatedAt: created}))
	require.NoError(t, r.SaveSession(ctx, session.User{Username: "luis", Pais: 2, Access: "a", Refresh: "r", AccessExpires: &exp, CreatedAt: created}))

	u, err = r.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "luis", u.Username)
	assert.Equal(t, int64(2), u.Pais)
	assert.Equal(t, created, u.CreatedAt)
	require.NotNil(t, u.AccessExpires)
	assert.Equal(t, exp, *u.AccessExpires)

	require.NoError(t, r.DeleteSession(ctx))
	u, err = r.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestRememberedUser(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t).Sessions()

	name, err := r.LoadRemembered(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, r.SaveRemembered(ctx, "ana"))
	require.NoError(t, r.SaveRemembered(ctx, "luis"))
	name, err = r.LoadRemembered(ctx)
	require.NoError(t, err)
	assert.Equal(t, "luis", name)

	require.NoError(t, r.ForgetRemembered(ctx))
	name, err = r.LoadRemembered(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t).Journal()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	stock := int64(15)

	ok := movement.JournalEntry{
		ID: "a", Direction: "entrada", TypeID: 1, BookID: 7, Quantity: 5, Amount: "100",
		HeaderID: 41, State: movement.Done, NewStock: &stock, CreatedAt: base,
		Path: []movement.State{movement.Idle, movement.Validating, movement.WritingHeader,
			movement.WritingDetail, movement.AdjustingStock, movement.Done},
	}
	orphan := movement.JournalEntry{
		ID: "b", Direction: "salida", TypeID: 2, BookID: 7, Quantity: 1, Amount: "10",
		HeaderID: 42, State: movement.Failed, ErrorCode: "DetailCreateFailed", Error: "HTTP 400",
		RollbackFailed: true, CreatedAt: base.Add(time.Minute),
		Path: []movement.State{movement.Idle, movement.Validating, movement.WritingHeader,
			movement.WritingDetail, movement.RollingBackHeader, movement.Failed},
	}
	require.NoError(t, j.Record(ctx, ok))
	require.NoError(t, j.Record(ctx, orphan))
	assert.Error(t, j.Record(ctx, ok), "duplicate id")

	got, err := j.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, ok, got)

	recent, err := j.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Nil(t, recent[0].NewStock)

	orphans, err := j.ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, int64(42), orphans[0].HeaderID)

	require.NoError(t, j.ResolveOrphan(ctx, "b"))
	assert.ErrorIs(t, j.ResolveOrphan(ctx, "b"), ErrNotFound)
	orphans, err = j.ListOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	_, err = j.Get(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}
