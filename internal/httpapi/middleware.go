package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/emundo/bookstock/internal/session"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).
			Dur("took", time.Since(start)).Msg("http")
	})
}

func public(path string) bool {
	return path == "/healthz" || path == "/api/login" || strings.HasPrefix(path, "/api/login/")
}

// requireSession answers 401 unless a live session exists.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || public(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := s.d.Sessions.Current(r.Context()); err != nil {
			if session.IsNotAuthenticated(err) {
				writeMessage(w, http.StatusUnauthorized, "No estás autenticado. Por favor inicia sesión.")
				return
			}
			log.Error().Err(err).Msg("session lookup failed")
			writeMessage(w, http.StatusInternalServerError, "Error al leer la sesión")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// confirmed enforces the explicit confirmation deletes need.
func confirmed(w http.ResponseWriter, r *http.Request, question string) bool {
	if r.URL.Query().Get("confirm") == "true" {
		return true
	}
	writeJSON(w, http.StatusPreconditionRequired, envelope{
		Message: question,
		Code:    "ConfirmationRequired",
	})
	return false
}
