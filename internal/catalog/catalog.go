// Package catalog is a read-through cache in front of the inventory API for
// books and the small lookup lists used by the forms.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/emundo/bookstock/internal/api"
)

// Source is the remote side of the catalog.
type Source interface {
	ListBooks(ctx context.Context) ([]api.Book, error)
	GetBook(ctx context.Context, id int64) (api.Book, error)
	CreateBook(ctx context.Context, in api.BookInput) (api.Book, error)
	UpdateBook(ctx context.Context, b api.Book) (api.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]api.Category, error)
	CreateCategory(ctx context.Context, nombre string) (api.Category, error)
	UpdateCategory(ctx context.Context, id int64, nombre string) (api.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListEntryTypes(ctx context.Context) ([]api.MovementType, error)
	ListExitTypes(ctx context.Context) ([]api.MovementType, error)
	ListBranches(ctx context.Context) ([]api.Branch, error)
}

const (
	keyBooks      = "books"
	keyCategories = "categories"
	keyEntryTypes = "entry_types"
	keyExitTypes  = "exit_types"
	keyBranches   = "branches"
)

type Catalog struct {
	src   Source
	books *lru.Cache[int64, api.Book]
	lists *lru.Cache[string, any]
}

func New(src Source, size int) (*Catalog, error) {
	if size <= 0 {
		size = 512
	}
	books, err := lru.New[int64, api.Book](size)
	if err != nil {
		return nil, fmt.Errorf("catalog: book cache: %w", err)
	}
	lists, err := lru.New[string, any](8)
	if err != nil {
		return nil, fmt.Errorf("catalog: list cache: %w", err)
	}
	return &Catalog{src: src, books: books, lists: lists}, nil
}

// cachedList returns the cached value under key or loads and stores it.
func cachedList[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := c.lists.Get(key); ok {
		return v.([]T), nil
	}
	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.lists.Add(key, items)
	log.Debug().Str("list", key).Int("items", len(items)).Msg("catalog: loaded")
	return items, nil
}

// ---- libros ----

// Books lists every book ordered by name, refreshing the per-id entries too.
func (c *Catalog) Books(ctx context.Context) ([]api.Book, error) {
	books, err := cachedList(ctx, c, keyBooks, func(ctx context.Context) ([]api.Book, error) {
		bs, err := c.src.ListBooks(ctx)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(bs, func(i, j int) bool {
			return strings.ToLower(bs[i].Nombre) < strings.ToLower(bs[j].Nombre)
		})
		for _, b := range bs {
			c.books.Add(b.ID, b)
		}
		return bs, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]api.Book, len(books))
	copy(out, books)
	return out, nil
}

// SearchBooks filters Books by a case-insensitive name fragment.
func (c *Catalog) SearchBooks(ctx context.Context, q string) ([]api.Book, error) {
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return books, nil
	}
	out := books[:0]
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Nombre), q) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *Catalog) Book(ctx context.Context, id int64) (api.Book, error) {
	if b, ok := c.books.Get(id); ok {
		return b, nil
	}
	b, err := c.src.GetBook(ctx, id)
	if err != nil {
		return api.Book{}, err
	}
	c.books.Add(id, b)
	return b, nil
}

// BookNames maps id -> nombre for every known book.
func (c *Catalog) BookNames(ctx context.Context) (map[int64]string, error) {
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(books))
	for _, b := range books {
		names[b.ID] = b.Nombre
	}
	return names, nil
}

func (c *Catalog) CreateBook(ctx context.Context, in api.BookInput) (api.Book, error) {
	b, err := c.src.CreateBook(ctx, in)
	if err != nil {
		return api.Book{}, err
	}
	c.lists.Remove(keyBooks)
	return b, nil
}

// UpdateBook applies in on top of the current record so fields the form does
// not edit are sent back unchanged.
func (c *Catalog) UpdateBook(ctx context.Context, id int64, in api.BookInput) (api.Book, error) {
	cur, err := c.src.GetBook(ctx, id)
	if err != nil {
		return api.Book{}, err
	}
	cur.Nombre = in.Nombre
	cur.Categoria = in.Categoria
	cur.CostoActual = in.CostoActual
	cur.Existencia = in.Existencia
	b, err := c.src.UpdateBook(ctx, cur)
	c.StockChanged(id)
	if err != nil {
		return api.Book{}, err
	}
	return b, nil
}

func (c *Catalog) DeleteBook(ctx context.Context, id int64) error {
	err := c.src.DeleteBook(ctx, id)
	c.StockChanged(id)
	return err
}

// KnownStock reads the book's current existencia from the API, never from the
// cache, and refreshes the cached copy with it.
func (c *Catalog) KnownStock(ctx context.Context, bookID int64) (int64, error) {
	b, err := c.src.GetBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	c.books.Add(bookID, b)
	c.lists.Remove(keyBooks)
	return b.Existencia, nil
}

// StockChanged drops every cached copy of the book.
func (c *Catalog) StockChanged(bookID int64) {
	c.books.Remove(bookID)
	c.lists.Remove(keyBooks)
}

// ---- categorías ----

func (c *Catalog) Categories(ctx context.Context) ([]api.Category, error) {
	return cachedList(ctx, c, keyCategories, c.src.ListCategories)
}

func (c *Catalog) CreateCategory(ctx context.Context, nombre string) (api.Category, error) {
	defer c.lists.Remove(keyCategories)
	return c.src.CreateCategory(ctx, strings.TrimSpace(nombre))
}

// UpdateCategory also drops the books list: it carries categorias_nombre.
func (c *Catalog) UpdateCategory(ctx context.Context, id int64, nombre string) (api.Category, error) {
	defer c.invalidate(keyCategories, keyBooks)
	return c.src.UpdateCategory(ctx, id, strings.TrimSpace(nombre))
}

func (c *Catalog) DeleteCategory(ctx context.Context, id int64) error {
	defer c.invalidate(keyCategories, keyBooks)
	return c.src.DeleteCategory(ctx, id)
}

// ---- tipos y sucursales ----

func (c *Catalog) EntryTypes(ctx context.Context) ([]api.MovementType, error) {
	return cachedList(ctx, c, keyEntryTypes, c.src.ListEntryTypes)
}

func (c *Catalog) ExitTypes(ctx context.Context) ([]api.MovementType, error) {
	return cachedList(ctx, c, keyExitTypes, c.src.ListExitTypes)
}

func (c *Catalog) Branches(ctx context.Context) ([]api.Branch, error) {
	return cachedList(ctx, c, keyBranches, c.src.ListBranches)
}

// Purge empties both caches.
func (c *Catalog) Purge() {
	c.books.Purge()
	c.lists.Purge()
}

func (c *Catalog) invalidate(keys ...string) {
	for _, k := range keys {
		c.lists.Remove(k)
	}
}
