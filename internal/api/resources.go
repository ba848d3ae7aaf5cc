package api

import (
	"context"
	"fmt"
	"net/http"
)

const (
	pathCategories = "InventarioLibros/Categorias/categorias/"
	pathBooks      = "InventarioLibros/Libros/libros/"
	pathEntryTypes = "Catalogos/TipoEntrada/tipoentrada/"
	pathExitTypes  = "Catalogos/TipoSalida/tiposalida/"
	pathBranches   = "Catalogos/Sucursal/"
)

// ProbePaths are the lookup collections used to check connectivity.
var ProbePaths = []string{pathCategories, pathBooks, pathEntryTypes, pathExitTypes}

func itemPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}

// ---- categorías ----

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return list[Category](ctx, c, pathCategories)
}

func (c *Client) GetCategory(ctx context.Context, id int64) (Category, error) {
	var out Category
	err := c.do(ctx, http.MethodGet, itemPath(pathCategories, id), nil, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, nombre string) (Category, error) {
	var out Category
	err := c.do(ctx, http.MethodPost, pathCategories, map[string]string{"nombre": nombre}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, nombre string) (Category, error) {
	var out Category
	err := c.do(ctx, http.MethodPut, itemPath(pathCategories, id), map[string]string{"nombre": nombre}, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(pathCategories, id), nil, nil)
}

// ---- libros ----

func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	return list[Book](ctx, c, pathBooks)
}

func (c *Client) GetBook(ctx context.Context, id int64) (Book, error) {
	var out Book
	err := c.do(ctx, http.MethodGet, itemPath(pathBooks, id), nil, &out)
	return out, err
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	var out Book
	err := c.do(ctx, http.MethodPost, pathBooks, in, &out)
	return out, err
}

// UpdateBook PUTs the whole record. A book read from the API is sent back with
// every field it was not edited on exactly as received.
func (c *Client) UpdateBook(ctx context.Context, b Book) (Book, error) {
	var out Book
	if err := c.do(ctx, http.MethodPut, itemPath(pathBooks, b.ID), b, &out); err != nil {
		return Book{}, err
	}
	if out.ID == 0 {
		// algunos endpoints responden 204 sin cuerpo
		out = b
	}
	return out, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(pathBooks, id), nil, nil)
}

// ---- catálogos ----

func (c *Client) ListEntryTypes(ctx context.Context) ([]MovementType, error) {
	return list[MovementType](ctx, c, pathEntryTypes)
}

func (c *Client) ListExitTypes(ctx context.Context) ([]MovementType, error) {
	return list[MovementType](ctx, c, pathExitTypes)
}

func (c *Client) ListBranches(ctx context.Context) ([]Branch, error) {
	return list[Branch](ctx, c, pathBranches)
}

func (c *Client) ListExitDetails(ctx context.Context) ([]ExitDetail, error) {
	return list[ExitDetail](ctx, c, ExitResource.DetailPath)
}

// Probe GETs a collection and returns how many items it holds.
func (c *Client) Probe(ctx context.Context, path string) (int, error) {
	items, err := list[map[string]any](ctx, c, path)
	return len(items), err
}
