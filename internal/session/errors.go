package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/emundo/bookstock/internal/api"
)

type Code string

const (
	MissingUsername    Code = "MissingUsername"
	MissingPassword    Code = "MissingPassword"
	MissingCountry     Code = "MissingCountry"
	InvalidCredentials Code = "InvalidCredentials"
	BadRequest         Code = "BadRequest"
	ServerError        Code = "ServerError"
	Rejected           Code = "Rejected"
	Timeout            Code = "Timeout"
	Unreachable        Code = "Unreachable"
	NoTokens           Code = "NoTokens"
)

var (
	ErrNotAuthenticated = errors.New("sesión no iniciada o expirada")
	ErrTokenExpired     = errors.New("el token de acceso expiró: iniciá sesión de nuevo")
)

// LoginError carries the message shown on the login form.
type LoginError struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

var messages = map[Code]string{
	MissingUsername:    "Por favor, ingresa tu usuario",
	MissingPassword:    "Por favor, ingresa tu contraseña",
	MissingCountry:     "Debes seleccionar un país",
	InvalidCredentials: "Credenciales inválidas. Por favor, verifica tus datos.",
	BadRequest:         "Datos de solicitud incorrectos.",
	ServerError:        "Error del servidor. Por favor, intenta más tarde.",
	Timeout:            "Tiempo de espera agotado. Verifica tu conexión.",
	Unreachable:        "Error de conexión al servidor",
	NoTokens:           "La respuesta no contiene tokens válidos",
}

func newLoginError(code Code) *LoginError {
	return &LoginError{Code: code, Message: messages[code]}
}

// classify maps a failed login call onto what the user is told.
func classify(err error) *LoginError {
	var se *api.StatusError
	if errors.As(err, &se) {
		le := &LoginError{Status: se.Status, Err: err}
		switch {
		case se.Status == http.StatusUnauthorized:
			le.Code = InvalidCredentials
		case se.Status == http.StatusBadRequest:
			le.Code = BadRequest
		case se.Status >= 500:
			le.Code = ServerError
		default:
			le.Code = Rejected
			le.Message = serverMessage(se.Body)
		}
		if le.Message == "" {
			le.Message = messages[le.Code]
		}
		return le
	}
	le := newLoginError(Unreachable)
	if errors.Is(err, context.DeadlineExceeded) {
		le = newLoginError(Timeout)
	}
	le.Err = err
	return le
}

// serverMessage reads the "error" field of a rejected login answer.
func serverMessage(body string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "Error en la respuesta del servidor"
	}
	if payload.Error == "" {
		return "Error desconocido"
	}
	return payload.Error
}
