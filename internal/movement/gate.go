package movement

import (
	"github.com/shopspring/decimal"
)

// Request is a movement as typed in the form. Quantity and Amount are kept as
// decimals so a fractional quantity can be told apart from a valid one.
type Request struct {
	TypeID   int64
	BookID   int64
	Quantity decimal.Decimal
	Amount   decimal.Decimal
	// KnownStock is the existencia the user saw for the book (exits only).
	// nil means unknown and skips the stock rule.
	KnownStock *int64
}

type Validated struct {
	Direction Direction
	TypeID    int64
	BookID    int64
	Quantity  int64
	Amount    decimal.Decimal
}

// Validate applies the form rules in order; the first failing rule wins.
func Validate(d Direction, req Request) (Validated, error) {
	fail := func(code ValidationCode) (Validated, error) {
		return Validated{}, &ValidationError{Code: code, Direction: d}
	}
	if req.TypeID <= 0 {
		return fail(MissingType)
	}
	if req.BookID <= 0 {
		return fail(MissingBook)
	}
	if !req.Quantity.IsInteger() || !req.Quantity.IsPositive() || !req.Quantity.BigInt().IsInt64() {
		return fail(InvalidQuantity)
	}
	if !req.Amount.IsPositive() {
		return fail(InvalidAmount)
	}
	v := Validated{
		Direction: d,
		TypeID:    req.TypeID,
		BookID:    req.BookID,
		Quantity:  req.Quantity.IntPart(),
		Amount:    req.Amount,
	}
	if d == Exit && req.KnownStock != nil {
		if err := checkStock(v, *req.KnownStock); err != nil {
			return Validated{}, err
		}
	}
	return v, nil
}

func checkStock(v Validated, available int64) error {
	if v.Direction == Exit && v.Quantity > available {
		return &ValidationError{Code: InsufficientStock, Direction: v.Direction, Available: available}
	}
	return nil
}
