package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emundo/bookstock/internal/movement"
)

type journalRow struct {
	ID             string        `db:"id"`
	Direction      string        `db:"direction"`
	TypeID         int64         `db:"type_id"`
	BookID         int64         `db:"book_id"`
	Quantity       int64         `db:"quantity"`
	Amount         string        `db:"amount"`
	HeaderID       int64         `db:"header_id"`
	State          string        `db:"state"`
	Path           string        `db:"path"`
	ErrorCode      string        `db:"error_code"`
	Error          string        `db:"error"`
	RollbackFailed bool          `db:"rollback_failed"`
	NewStock       sql.NullInt64 `db:"new_stock"`
	CreatedAt      int64         `db:"created_at"`
}

func (r journalRow) entry() movement.JournalEntry {
	e := movement.JournalEntry{
		ID:             r.ID,
		Direction:      r.Direction,
		TypeID:         r.TypeID,
		BookID:         r.BookID,
		Quantity:       r.Quantity,
		Amount:         r.Amount,
		HeaderID:       r.HeaderID,
		State:          movement.State(r.State),
		ErrorCode:      r.ErrorCode,
		Error:          r.Error,
		RollbackFailed: r.RollbackFailed,
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
	}
	for _, p := range strings.Split(r.Path, ",") {
		if p != "" {
			e.Path = append(e.Path, movement.State(p))
		}
	}
	if r.NewStock.Valid {
		n := r.NewStock.Int64
		e.NewStock = &n
	}
	return e
}

var ErrNotFound = errors.New("store: not found")

// Journal implements movement.Journal.
type Journal struct {
	s *Store
}

func (s *Store) Journal() *Journal { return &Journal{s: s} }

const journalCols = `id,direction,type_id,book_id,quantity,amount,header_id,state,path,
error_code,error,rollback_failed,new_stock,created_at`

func (j *Journal) Record(ctx context.Context, e movement.JournalEntry) error {
	path := make([]string, len(e.Path))
	for i, p := range e.Path {
		path[i] = string(p)
	}
	var stock sql.NullInt64
	if e.NewStock != nil {
		stock = sql.NullInt64{Int64: *e.NewStock, Valid: true}
	}
	_, err := j.s.DB.ExecContext(ctx, `INSERT INTO movement_journal(`+journalCols+`)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Direction, e.TypeID, e.BookID, e.Quantity, e.Amount, e.HeaderID,
		string(e.State), strings.Join(path, ","), e.ErrorCode, e.Error, e.RollbackFailed,
		stock, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("journal %s: %w", e.ID, err)
	}
	return nil
}

func (j *Journal) Get(ctx context.Context, id string) (movement.JournalEntry, error) {
	var row journalRow
	err := j.s.DB.GetContext(ctx, &row, `SELECT `+journalCols+` FROM movement_journal WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return movement.JournalEntry{}, ErrNotFound
	}
	if err != nil {
		return movement.JournalEntry{}, err
	}
	return row.entry(), nil
}

// ListRecent returns the newest submissions first.
func (j *Journal) ListRecent(ctx context.Context, limit int) ([]movement.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []journalRow
	err := j.s.DB.SelectContext(ctx, &rows,
		`SELECT `+journalCols+` FROM movement_journal ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	return entries(rows), nil
}

// ListOrphans returns submissions whose header survived a failed rollback.
func (j *Journal) ListOrphans(ctx context.Context) ([]movement.JournalEntry, error) {
	var rows []journalRow
	err := j.s.DB.SelectContext(ctx, &rows,
		`SELECT `+journalCols+` FROM movement_journal WHERE rollback_failed=1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("journal orphans: %w", err)
	}
	return entries(rows), nil
}

// ResolveOrphan clears the orphan flag once the header was removed by hand.
func (j *Journal) ResolveOrphan(ctx context.Context, id string) error {
	res, err := j.s.DB.ExecContext(ctx,
		`UPDATE movement_journal SET rollback_failed=0 WHERE id=? AND rollback_failed=1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func entries(rows []journalRow) []movement.JournalEntry {
	out := make([]movement.JournalEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out
}
