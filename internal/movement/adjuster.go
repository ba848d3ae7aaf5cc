package movement

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/emundo/bookstock/internal/api"
)

type BookAPI interface {
	GetBook(ctx context.Context, id int64) (api.Book, error)
	UpdateBook(ctx context.Context, b api.Book) (api.Book, error)
}

// Adjuster keeps Book.Existencia as a running total of movements.
type Adjuster struct {
	books BookAPI
}

func NewAdjuster(b BookAPI) *Adjuster { return &Adjuster{books: b} }

// NewQuantity never returns a negative value, whatever the inputs.
func NewQuantity(current, qty int64, d Direction) int64 {
	n := current + qty
	if d == Exit {
		n = current - qty
	}
	if n < 0 {
		return 0
	}
	return n
}

// Adjust fetches the book, applies the movement and PUTs it back with every
// other field unchanged. It returns the new existencia.
func (a *Adjuster) Adjust(ctx context.Context, bookID, qty int64, d Direction) (int64, error) {
	book, err := a.books.GetBook(ctx, bookID)
	if err != nil {
		return 0, &AdjustError{Code: BookFetchFailed, BookID: bookID, Err: err}
	}
	before := book.Existencia
	book.Existencia = NewQuantity(before, qty, d)

	if _, err := a.books.UpdateBook(ctx, book); err != nil {
		return 0, &AdjustError{Code: BookUpdateFailed, BookID: bookID, Err: err}
	}
	log.Info().Int64("book", bookID).Str("dir", d.String()).
		Int64("before", before).Int64("after", book.Existencia).Msg("existencia actualizada")
	return book.Existencia, nil
}
