// Package movement records stock entries and exits against the remote API and
// keeps the book's cached existencia in step with them.
//
// A submission runs strictly in order: validate, create header, create detail
// (deleting the header again if the detail fails), then adjust the book stock.
// Nothing here coordinates concurrent submissions on the same book; the stock
// update is a plain read-modify-write and the last writer wins.
package movement

import (
	"fmt"
	"strings"

	"github.com/emundo/bookstock/internal/api"
)

type Direction int

const (
	Entry Direction = iota + 1
	Exit
)

func (d Direction) String() string {
	switch d {
	case Entry:
		return "entrada"
	case Exit:
		return "salida"
	default:
		return "desconocida"
	}
}

// Resource maps the direction onto its remote header/detail collections.
func (d Direction) Resource() api.MovementResource {
	if d == Exit {
		return api.ExitResource
	}
	return api.EntryResource
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entrada", "entry", "in":
		return Entry, nil
	case "salida", "exit", "out":
		return Exit, nil
	}
	return 0, fmt.Errorf("dirección de movimiento inválida: %q", s)
}
