package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// MovementResource describes where and how one movement kind (entrada or
// salida) is stored. Both kinds share the header/detail shape and differ only
// in paths and field names.
type MovementResource struct {
	Name        string
	HeaderPath  string
	DetailPath  string
	DateField   string
	TypeField   string
	BranchField string
	HeaderRef   string // campo del detalle que apunta al encabezado
	AmountField string
}

var (
	EntryResource = MovementResource{
		Name:        "entrada",
		HeaderPath:  "Catalogos/Entrada/entrada/",
		DetailPath:  "Catalogos/Entrada/detalleentrada/",
		DateField:   "fechaentrada",
		TypeField:   "tipoentrada_id",
		BranchField: "sucursalid_id",
		HeaderRef:   "entrada",
		AmountField: "costoactual",
	}
	ExitResource = MovementResource{
		Name:        "salida",
		HeaderPath:  "Catalogos/Salida/salida/",
		DetailPath:  "Catalogos/Salida/detallesalida/",
		DateField:   "fechasalida",
		TypeField:   "tiposalida_id",
		BranchField: "sucursalid_id",
		HeaderRef:   "salida",
		AmountField: "costosalida",
	}
)

type HeaderInput struct {
	Date     string // YYYY-MM-DD
	TypeID   int64
	BranchID int64
}

type DetailInput struct {
	HeaderID int64
	BookID   int64
	Quantity int64
	Amount   decimal.Decimal
}

var errNoHeaderID = errors.New("header created without id")

func (c *Client) CreateHeader(ctx context.Context, r MovementResource, in HeaderInput) (int64, error) {
	payload := map[string]any{
		r.DateField:   in.Date,
		r.TypeField:   in.TypeID,
		r.BranchField: in.BranchID,
	}
	var h Header
	if err := c.do(ctx, http.MethodPost, r.HeaderPath, payload, &h); err != nil {
		return 0, err
	}
	if h.ID == 0 {
		return 0, errNoHeaderID
	}
	return h.ID, nil
}

func (c *Client) DeleteHeader(ctx context.Context, r MovementResource, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(r.HeaderPath, id), nil, nil)
}

func (c *Client) CreateDetail(ctx context.Context, r MovementResource, in DetailInput) error {
	payload := map[string]any{
		r.HeaderRef:   in.HeaderID,
		"libro":       in.BookID,
		"cantidad":    in.Quantity,
		r.AmountField: in.Amount,
	}
	return c.do(ctx, http.MethodPost, r.DetailPath, payload, nil)
}
