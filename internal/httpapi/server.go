// Package httpapi is the admin JSON API: login, catalog maintenance, stock
// movements and the sales report.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/emundo/bookstock/internal/api"
	"github.com/emundo/bookstock/internal/health"
	"github.com/emundo/bookstock/internal/movement"
	"github.com/emundo/bookstock/internal/report"
	"github.com/emundo/bookstock/internal/session"
)

type Sessions interface {
	Login(ctx context.Context, c session.Credentials) (session.User, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (session.User, error)
	Remembered(ctx context.Context) (string, error)
	Age(u session.User) string
	Mode() session.Mode
}

type Catalog interface {
	Books(ctx context.Context) ([]api.Book, error)
	SearchBooks(ctx context.Context, q string) ([]api.Book, error)
	Book(ctx context.Context, id int64) (api.Book, error)
	CreateBook(ctx context.Context, in api.BookInput) (api.Book, error)
	UpdateBook(ctx context.Context, id int64, in api.BookInput) (api.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	Categories(ctx context.Context) ([]api.Category, error)
	CreateCategory(ctx context.Context, nombre string) (api.Category, error)
	UpdateCategory(ctx context.Context, id int64, nombre string) (api.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	EntryTypes(ctx context.Context) ([]api.MovementType, error)
	ExitTypes(ctx context.Context) ([]api.MovementType, error)
	Branches(ctx context.Context) ([]api.Branch, error)
}

type Movements interface {
	Submit(ctx context.Context, d movement.Direction, req movement.Request) (movement.Result, error)
}

type Journal interface {
	ListRecent(ctx context.Context, limit int) ([]movement.JournalEntry, error)
	ListOrphans(ctx context.Context) ([]movement.JournalEntry, error)
	Get(ctx context.Context, id string) (movement.JournalEntry, error)
	ResolveOrphan(ctx context.Context, id string) error
}

// HeaderRemover deletes a movement header left behind by a failed rollback.
type HeaderRemover interface {
	DeleteHeader(ctx context.Context, r api.MovementResource, id int64) error
}

type Health interface {
	Run(ctx context.Context) health.Report
	Last() health.Report
}

type Deps struct {
	Sessions  Sessions
	Catalog   Catalog
	Movements Movements
	Journal   Journal
	Headers   HeaderRemover
	Report    report.Source
	Health    Health

	CORSOrigins []string
	// Timeout bounds every handler's remote calls.
	Timeout time.Duration
}

type Server struct {
	d Deps
}

func New(d Deps) *Server {
	if d.Timeout <= 0 {
		d.Timeout = 20 * time.Second
	}
	return &Server{d: d}
}

func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.d.Timeout)
}

// Handler returns the routed API wrapped in CORS, access log and session gate.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	a.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)

	a.HandleFunc("/categorias", s.handleListCategories).Methods(http.MethodGet)
	a.HandleFunc("/categorias", s.handleCreateCategory).Methods(http.MethodPost)
	a.HandleFunc("/categorias/{id:[0-9]+}", s.handleUpdateCategory).Methods(http.MethodPut)
	a.HandleFunc("/categorias/{id:[0-9]+}", s.handleDeleteCategory).Methods(http.MethodDelete)

	a.HandleFunc("/libros", s.handleListBooks).Methods(http.MethodGet)
	a.HandleFunc("/libros", s.handleCreateBook).Methods(http.MethodPost)
	a.HandleFunc("/libros/{id:[0-9]+}", s.handleGetBook).Methods(http.MethodGet)
	a.HandleFunc("/libros/{id:[0-9]+}", s.handleUpdateBook).Methods(http.MethodPut)
	a.HandleFunc("/libros/{id:[0-9]+}", s.handleDeleteBook).Methods(http.MethodDelete)

	a.HandleFunc("/tipos-entrada", s.handleEntryTypes).Methods(http.MethodGet)
	a.HandleFunc("/tipos-salida", s.handleExitTypes).Methods(http.MethodGet)
	a.HandleFunc("/sucursales", s.handleBranches).Methods(http.MethodGet)

	a.HandleFunc("/entradas", s.handleMovement(movement.Entry)).Methods(http.MethodPost)
	a.HandleFunc("/salidas", s.handleMovement(movement.Exit)).Methods(http.MethodPost)
	a.HandleFunc("/movimientos", s.handleJournal).Methods(http.MethodGet)
	a.HandleFunc("/movimientos/huerfanos", s.handleOrphans).Methods(http.MethodGet)
	a.HandleFunc("/movimientos/huerfanos/{id}", s.handleDeleteOrphan).Methods(http.MethodDelete)

	a.HandleFunc("/reportes/mas-vendidos", s.handleTopSelling).Methods(http.MethodGet)
	a.HandleFunc("/conexion", s.handleConnectivity).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Recurso no encontrado")
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(withLog(s.requireSession(r)))
}
