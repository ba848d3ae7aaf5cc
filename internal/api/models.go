package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// Book mirrors InventarioLibros/Libros. Extra keeps every field the server sent
// that this struct does not name, so a PUT never drops data. Named fields that
// were not changed are sent back exactly as the server wrote them (nulls and
// "12.50" included).
type Book struct {
	ID              int64           `json:"id"`
	Nombre          string          `json:"nombre"`
	Categoria       int64           `json:"categorias"`
	CategoriaNombre string          `json:"categorias_nombre,omitempty"`
	CostoActual     decimal.Decimal `json:"costoactual"`
	Existencia      int64           `json:"existencia"`

	Extra map[string]json.RawMessage `json:"-"`

	// as received; nil for books built locally
	raw  map[string]json.RawMessage
	orig *bookFields
}

var bookKeys = map[string]bool{
	"id": true, "nombre": true, "categorias": true, "categorias_nombre": true, "costoactual": true, "existencia": true,
}

type bookFields struct {
	ID              int64           `json:"id"`
	Nombre          string          `json:"nombre"`
	Categoria       int64           `json:"categorias"`
	CategoriaNombre string          `json:"categorias_nombre,omitempty"`
	CostoActual     decimal.Decimal `json:"costoactual"`
	Existencia      int64           `json:"existencia"`
}

func (b Book) fields() bookFields {
	return bookFields{
		ID:              b.ID,
		Nombre:          b.Nombre,
		Categoria:       b.Categoria,
		CategoriaNombre: b.CategoriaNombre,
		CostoActual:     b.CostoActual,
		Existencia:      b.Existencia,
	}
}

// changed lists the JSON keys whose value differs from what was received.
func (f bookFields) changed(orig bookFields) map[string]bool {
	return map[string]bool{
		"id":                f.ID != orig.ID,
		"nombre":            f.Nombre != orig.Nombre,
		"categorias":        f.Categoria != orig.Categoria,
		"categorias_nombre": f.CategoriaNombre != orig.CategoriaNombre,
		"costoactual":       !f.CostoActual.Equal(orig.CostoActual),
		"existencia":        f.Existencia != orig.Existencia,
	}
}

func (b *Book) UnmarshalJSON(data []byte) error {
	var f bookFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*b = Book{
		ID:              f.ID,
		Nombre:          f.Nombre,
		Categoria:       f.Categoria,
		CategoriaNombre: f.CategoriaNombre,
		CostoActual:     f.CostoActual,
		Existencia:      f.Existencia,
		raw:             all,
		orig:            &f,
	}
	for k, v := range all {
		if !bookKeys[k] {
			if b.Extra == nil {
				b.Extra = make(map[string]json.RawMessage)
			}
			b.Extra[k] = v
		}
	}
	return nil
}

func (b Book) MarshalJSON() ([]byte, error) {
	cur := b.fields()
	known, err := json.Marshal(cur)
	if err != nil {
		return nil, err
	}
	var encoded map[string]json.RawMessage
	if err := json.Unmarshal(known, &encoded); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(b.raw)+len(b.Extra)+len(encoded))
	for k, v := range b.raw {
		out[k] = v
	}
	for k, v := range b.Extra {
		out[k] = v
	}
	if b.orig == nil {
		for k, v := range encoded {
			out[k] = v
		}
		return json.Marshal(out)
	}
	for k, diff := range cur.changed(*b.orig) {
		_, present := b.raw[k]
		if v, ok := encoded[k]; ok && (diff || !present) {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// BookInput is the create/update payload of the books form.
type BookInput struct {
	Nombre      string          `json:"nombre"`
	Categoria   int64           `json:"categorias"`
	CostoActual decimal.Decimal `json:"costoactual"`
	Existencia  int64           `json:"existencia"`
}

// MovementType is a TipoEntrada / TipoSalida row.
type MovementType struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

type Branch struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// Header is what the API answers after creating an entrada/salida.
type Header struct {
	ID int64 `json:"id"`
}

// ExitDetail is a detallesalida row as listed by the API (used by reports).
type ExitDetail struct {
	ID          int64           `json:"id"`
	Salida      int64           `json:"salida"`
	Libro       int64           `json:"libro"`
	Cantidad    int64           `json:"cantidad"`
	CostoSalida decimal.Decimal `json:"costosalida"`
}
