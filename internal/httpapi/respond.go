package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/emundo/bookstock/internal/api"
	"github.com/emundo/bookstock/internal/movement"
)

type envelope struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Message: msg})
}

func writeData(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, envelope{Message: msg, Data: data})
}

// writeRemote answers a failed call to the inventory API. msg is the
// user-facing text; the cause goes to the log and to the code field.
func writeRemote(w http.ResponseWriter, msg string, err error) {
	var se *api.StatusError
	code := "RemoteError"
	status := http.StatusBadGateway
	switch {
	case errors.As(err, &se) && se.Status == http.StatusNotFound:
		status, code = http.StatusNotFound, "NotFound"
	case errors.As(err, &se):
		code = "Upstream" + strconv.Itoa(se.Status)
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "Timeout"
	case movement.IsNetwork(err):
		code = "Unreachable"
	}
	log.Warn().Err(err).Int("status", status).Msg(msg)
	writeJSON(w, status, envelope{Message: msg, Code: code})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Datos de solicitud incorrectos.", Code: "BadRequest"})
		return false
	}
	return true
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}
