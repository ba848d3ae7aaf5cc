package movement

import (
	"errors"
	"fmt"

	"github.com/emundo/bookstock/internal/api"
)

type ValidationCode string

const (
	MissingType       ValidationCode = "MissingType"
	MissingBook       ValidationCode = "MissingBook"
	InvalidQuantity   ValidationCode = "InvalidQuantity"
	InvalidAmount     ValidationCode = "InvalidAmount"
	InsufficientStock ValidationCode = "InsufficientStock"
)

// ValidationError is user-correctable and is raised before any remote call.
type ValidationError struct {
	Code      ValidationCode
	Direction Direction
	Available int64 // sólo InsufficientStock
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case MissingType:
		if e.Direction == Exit {
			return "Seleccioná un tipo de salida válida."
		}
		return "Seleccioná un tipo de entrada válido."
	case MissingBook:
		return "Seleccioná un libro válido."
	case InvalidQuantity:
		return "Ingresá una cantidad válida."
	case InvalidAmount:
		if e.Direction == Exit {
			return "Ingresá un precio válido."
		}
		return "Ingresá un costo válido."
	case InsufficientStock:
		return fmt.Sprintf("Stock insuficiente. Disponible: %d", e.Available)
	}
	return string(e.Code)
}

type WriteCode string

const (
	HeaderCreateFailed WriteCode = "HeaderCreateFailed"
	DetailCreateFailed WriteCode = "DetailCreateFailed"
)

// WriteError means the movement was not recorded. For DetailCreateFailed the
// header was created and a single delete was attempted; RollbackErr is set when
// that delete failed too and the header is left orphaned on the server.
type WriteError struct {
	Code        WriteCode
	HeaderID    int64
	Err         error
	RollbackErr error
}

func (e *WriteError) Error() string {
	switch e.Code {
	case HeaderCreateFailed:
		return fmt.Sprintf("error al crear el encabezado: %v", e.Err)
	case DetailCreateFailed:
		return fmt.Sprintf("error al crear el detalle: %v", e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Orphaned reports whether a header was left behind by a failed rollback.
func (e *WriteError) Orphaned() bool {
	return e.Code == DetailCreateFailed && e.RollbackErr != nil
}

type AdjustCode string

const (
	BookFetchFailed  AdjustCode = "BookFetchFailed"
	BookUpdateFailed AdjustCode = "BookUpdateFailed"
)

// AdjustError happens after header and detail exist: the movement is recorded
// but the book's existencia no longer matches it. It is not reconciled.
type AdjustError struct {
	Code   AdjustCode
	BookID int64
	Err    error
}

func (e *AdjustError) Error() string {
	return fmt.Sprintf("no se pudo actualizar la existencia del libro %d: %v", e.BookID, e.Err)
}

func (e *AdjustError) Unwrap() error { return e.Err }

// ErrorCode is the machine-readable code of a submission error, "" when err
// is not one of the typed movement errors.
func ErrorCode(err error) string {
	var (
		ve *ValidationError
		we *WriteError
		ae *AdjustError
	)
	switch {
	case errors.As(err, &ve):
		return string(ve.Code)
	case errors.As(err, &we):
		return string(we.Code)
	case errors.As(err, &ae):
		return string(ae.Code)
	}
	return ""
}

// IsNetwork reports whether err comes from a transport failure or timeout.
func IsNetwork(err error) bool {
	var ne *api.NetworkError
	return errors.As(err, &ne)
}

// UserMessage renders the alert text shown for a submission outcome.
func UserMessage(d Direction, err error) string {
	if err == nil {
		if d == Exit {
			return "¡Salida registrada correctamente!"
		}
		return "¡Entrada registrada correctamente!"
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if IsNetwork(err) {
		return "No se puede conectar al servidor: " + err.Error()
	}
	return fmt.Sprintf("Error al registrar %s: %v", d, err)
}
