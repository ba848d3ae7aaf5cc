package movement

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/emundo/bookstock/internal/api"
)

var errBoom = errors.New("HTTP 400")

// fakeAPI records every remote call in order ("POST header", "DELETE header 41", ...).
type fakeAPI struct {
	calls     []string
	nextID    int64
	books     map[int64]api.Book
	headerErr error
	detailErr error
	deleteErr error
	getErr    error
	putErr    error
	lastPut   api.Book
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 41, books: map[int64]api.Book{}}
}

func (f *fakeAPI) CreateHeader(_ context.Context, r api.MovementResource, in api.HeaderInput) (int64, error) {
	f.calls = append(f.calls, "POST "+r.HeaderPath)
	if f.headerErr != nil {
		return 0, f.headerErr
	}
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeAPI) CreateDetail(_ context.Context, r api.MovementResource, in api.DetailInput) error {
	f.calls = append(f.calls, fmt.Sprintf("POST %s header=%d", r.DetailPath, in.HeaderID))
	return f.detailErr
}

func (f *fakeAPI) DeleteHeader(_ context.Context, r api.MovementResource, id int64) error {
	f.calls = append(f.calls, fmt.Sprintf("DELETE %s%d/", r.HeaderPath, id))
	return f.deleteErr
}

func (f *fakeAPI) GetBook(_ context.Context, id int64) (api.Book, error) {
	f.calls = append(f.calls, fmt.Sprintf("GET book %d", id))
	if f.getErr != nil {
		return api.Book{}, f.getErr
	}
	b, ok := f.books[id]
	if !ok {
		return api.Book{}, &api.StatusError{Status: 404}
	}
	return b, nil
}

func (f *fakeAPI) UpdateBook(_ context.Context, b api.Book) (api.Book, error) {
	f.calls = append(f.calls, fmt.Sprintf("PUT book %d existencia=%d", b.ID, b.Existencia))
	if f.putErr != nil {
		return api.Book{}, f.putErr
	}
	f.lastPut = b
	f.books[b.ID] = b
	return b, nil
}

func (f *fakeAPI) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func stock(n int64) *int64 { return &n }

func req(tipo, libro int64, cantidad, monto string) Request {
	return Request{TypeID: tipo, BookID: libro, Quantity: dec(cantidad), Amount: dec(monto)}
}
