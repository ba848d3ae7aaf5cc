package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/emundo/bookstock/internal/api"
	"github.com/emundo/bookstock/internal/movement"
	"github.com/emundo/bookstock/internal/report"
	"github.com/emundo/bookstock/internal/session"
	"github.com/emundo/bookstock/internal/store"
)

// ---- sesión ----

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Pais     int64  `json:"pais"`
	Remember bool   `json:"remember"`
}

type userView struct {
	Username   string `json:"username"`
	Pais       int64  `json:"pais,omitempty"`
	PaisNombre string `json:"pais_nombre,omitempty"`
	Dashboard  string `json:"dashboard,omitempty"`
	Rol        string `json:"rol,omitempty"`
	Desde      string `json:"desde,omitempty"`
}

func (s *Server) view(u session.User) userView {
	v := userView{Username: u.Username, Pais: u.Pais, Rol: u.Rol, Desde: s.d.Sessions.Age(u)}
	if c, err := session.CountryByID(u.Pais); err == nil {
		v.PaisNombre, v.Dashboard = c.Nombre, c.Slug
	}
	return v
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	name, err := s.d.Sessions.Remembered(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error al cargar usuario recordado")
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{
		"remembered": name,
		"mode":       s.d.Sessions.Mode(),
		"paises":     session.Countries(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decode(w, r, &body) {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()

	u, err := s.d.Sessions.Login(ctx, session.Credentials{
		Username: body.Username, Password: body.Password, Pais: body.Pais, Remember: body.Remember,
	})
	var le *session.LoginError
	if errors.As(err, &le) {
		status := http.StatusBadGateway
		switch le.Code {
		case session.MissingUsername, session.MissingPassword, session.MissingCountry:
			status = http.StatusUnprocessableEntity
		case session.InvalidCredentials:
			status = http.StatusUnauthorized
		case session.Timeout:
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, envelope{Message: le.Message, Code: string(le.Code)})
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error al guardar la sesión")
		return
	}

	msg := session.Welcome(u)
	v := s.view(u)
	if s.d.Sessions.Mode() == session.ModeCountry && v.Dashboard == "" {
		msg += " " + session.MsgNoDashboard
	}
	writeData(w, http.StatusOK, msg, v)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Sessions.Logout(r.Context()); err != nil {
		writeMessage(w, http.StatusInternalServerError, "No se pudo cerrar la sesión")
		return
	}
	writeMessage(w, http.StatusOK, "Sesión cerrada")
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	u, err := s.d.Sessions.Current(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "No estás autenticado. Por favor inicia sesión.")
		return
	}
	writeData(w, http.StatusOK, "", s.view(u))
}

// ---- categorías ----

type categoryBody struct {
	Nombre string `json:"nombre"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	cats, err := s.d.Catalog.Categories(ctx)
	if err != nil {
		writeRemote(w, "Error cargando categorías", err)
		return
	}
	writeData(w, http.StatusOK, "", cats)
}

func (s *Server) saveCategory(w http.ResponseWriter, r *http.Request, id int64) {
	var body categoryBody
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Nombre) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, envelope{Message: "Por favor ingresá el nombre de la categoría.", Code: "MissingName"})
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()

	var (
		c   api.Category
		err error
	)
	if id == 0 {
		c, err = s.d.Catalog.CreateCategory(ctx, body.Nombre)
	} else {
		c, err = s.d.Catalog.UpdateCategory(ctx, id, body.Nombre)
	}
	if err != nil {
		writeRemote(w, "Error al guardar categoría", err)
		return
	}
	if id == 0 {
		writeData(w, http.StatusCreated, "¡Categoría registrada!", c)
		return
	}
	writeData(w, http.StatusOK, "¡Categoría actualizada!", c)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) { s.saveCategory(w, r, 0) }
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	s.saveCategory(w, r, pathID(r))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r, "¿Seguro que querés eliminar esta categoría?") {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	if err := s.d.Catalog.DeleteCategory(ctx, pathID(r)); err != nil {
		writeRemote(w, "No se pudo eliminar la categoría.", err)
		return
	}
	writeMessage(w, http.StatusOK, "¡Categoría eliminada!")
}

// ---- libros ----

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	books, err := s.d.Catalog.SearchBooks(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeRemote(w, "Error cargando libros", err)
		return
	}
	if cat, _ := strconv.ParseInt(r.URL.Query().Get("categoria"), 10, 64); cat > 0 {
		filtered := books[:0]
		for _, b := range books {
			if b.Categoria == cat {
				filtered = append(filtered, b)
			}
		}
		books = filtered
	}
	msg := ""
	if len(books) == 0 {
		msg = "No hay libros"
	}
	writeData(w, http.StatusOK, msg, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	b, err := s.d.Catalog.Book(ctx, pathID(r))
	if err != nil {
		writeRemote(w, "Error cargando libro", err)
		return
	}
	writeData(w, http.StatusOK, "", b)
}

func validBook(in api.BookInput) (string, bool) {
	switch {
	case strings.TrimSpace(in.Nombre) == "":
		return "Por favor ingresá el nombre del libro.", false
	case in.Categoria <= 0:
		return "Por favor seleccioná una categoría válida.", false
	case in.CostoActual.IsNegative():
		return "Ingresá un costo válido.", false
	case in.Existencia < 0:
		return "Ingresá una existencia válida.", false
	}
	return "", true
}

func (s *Server) saveBook(w http.ResponseWriter, r *http.Request, id int64) {
	var in api.BookInput
	if !decode(w, r, &in) {
		return
	}
	in.Nombre = strings.TrimSpace(in.Nombre)
	if msg, ok := validBook(in); !ok {
		writeJSON(w, http.StatusUnprocessableEntity, envelope{Message: msg, Code: "InvalidBook"})
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()

	if id == 0 {
		b, err := s.d.Catalog.CreateBook(ctx, in)
		if err != nil {
			writeRemote(w, "Error al guardar libro", err)
			return
		}
		writeData(w, http.StatusCreated, "¡Libro registrado!", b)
		return
	}
	b, err := s.d.Catalog.UpdateBook(ctx, id, in)
	if err != nil {
		writeRemote(w, "Error al guardar libro", err)
		return
	}
	writeData(w, http.StatusOK, "¡Libro actualizado!", b)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) { s.saveBook(w, r, 0) }
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) { s.saveBook(w, r, pathID(r)) }

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r, "¿Seguro que querés eliminar este libro?") {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	if err := s.d.Catalog.DeleteBook(ctx, pathID(r)); err != nil {
		writeRemote(w, "No se pudo eliminar el libro.", err)
		return
	}
	writeMessage(w, http.StatusOK, "¡Libro eliminado!")
}

// ---- catálogos ----

func (s *Server) handleEntryTypes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	types, err := s.d.Catalog.EntryTypes(ctx)
	if err != nil {
		writeRemote(w, "Error cargando tipos de entrada", err)
		return
	}
	writeData(w, http.StatusOK, "", types)
}

func (s *Server) handleExitTypes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	types, err := s.d.Catalog.ExitTypes(ctx)
	if err != nil {
		writeRemote(w, "Error cargando tipos de salida", err)
		return
	}
	writeData(w, http.StatusOK, "", types)
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	branches, err := s.d.Catalog.Branches(ctx)
	if err != nil {
		writeRemote(w, "Error cargando sucursales", err)
		return
	}
	writeData(w, http.StatusOK, "", branches)
}

// ---- movimientos ----

type movementBody struct {
	Tipo     int64           `json:"tipo"`
	Libro    int64           `json:"libro"`
	Cantidad decimal.Decimal `json:"cantidad"`
	Monto    decimal.Decimal `json:"monto"`
	// existencia que vio el usuario; sólo salidas
	Existencia *int64 `json:"existencia,omitempty"`
}

type movementView struct {
	SubmissionID string           `json:"submission_id"`
	HeaderID     int64            `json:"header_id,omitempty"`
	Existencia   *int64           `json:"existencia,omitempty"`
	Estado       movement.State   `json:"estado"`
	Recorrido    []movement.State `json:"recorrido"`
}

func (s *Server) handleMovement(d movement.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body movementBody
		if !decode(w, r, &body) {
			return
		}
		ctx, cancel := s.ctx(r)
		defer cancel()

		res, err := s.d.Movements.Submit(ctx, d, movement.Request{
			TypeID:     body.Tipo,
			BookID:     body.Libro,
			Quantity:   body.Cantidad,
			Amount:     body.Monto,
			KnownStock: body.Existencia,
		})
		v := movementView{SubmissionID: res.SubmissionID, HeaderID: res.HeaderID, Estado: res.State, Recorrido: res.Path}
		msg := movement.UserMessage(d, err)
		if err == nil {
			n := res.NewStock
			v.Existencia = &n
			writeData(w, http.StatusCreated, msg, v)
			return
		}

		status := http.StatusBadGateway
		var ve *movement.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, envelope{Message: msg, Code: movement.ErrorCode(err), Data: v})
	}
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.d.Journal.ListRecent(r.Context(), limit)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error leyendo el historial de movimientos")
		return
	}
	writeData(w, http.StatusOK, "", entries)
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	entries, err := s.d.Journal.ListOrphans(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error leyendo el historial de movimientos")
		return
	}
	msg := ""
	if len(entries) > 0 {
		msg = strconv.Itoa(len(entries)) + " encabezado(s) sin detalle pendiente(s) de eliminar"
	}
	writeData(w, http.StatusOK, msg, entries)
}

// handleDeleteOrphan removes the header a failed rollback left on the server
// and clears the journal flag.
func (s *Server) handleDeleteOrphan(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r, "¿Seguro que querés eliminar este encabezado sin detalle?") {
		return
	}
	id := mux.Vars(r)["id"]
	e, err := s.d.Journal.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !e.RollbackFailed) {
		writeMessage(w, http.StatusNotFound, "Movimiento huérfano no encontrado")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error leyendo el historial de movimientos")
		return
	}
	d, err := movement.ParseDirection(e.Direction)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()
	var se *api.StatusError
	err = s.d.Headers.DeleteHeader(ctx, d.Resource(), e.HeaderID)
	if err != nil && !(errors.As(err, &se) && se.Status == http.StatusNotFound) {
		writeRemote(w, "No se pudo eliminar el encabezado", err)
		return
	}
	if err := s.d.Journal.ResolveOrphan(r.Context(), id); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Encabezado eliminado pero no se pudo actualizar el historial")
		return
	}
	writeMessage(w, http.StatusOK, "Encabezado huérfano eliminado")
}

// ---- reportes y conexión ----

func (s *Server) handleTopSelling(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	st, err := report.Build(ctx, s.d.Report)
	if err != nil {
		writeRemote(w, "Error al actualizar el reporte", err)
		return
	}
	writeData(w, http.StatusOK, st.Headline(), st)
}

const msgNoConnection = "No se puede conectar al servidor. Verificá que la API esté corriendo y tu conexión a internet."

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	rep := s.d.Health.Run(ctx)
	if !rep.OK {
		writeData(w, http.StatusServiceUnavailable, msgNoConnection, rep)
		return
	}
	writeData(w, http.StatusOK, "Conexión OK", rep)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if s.d.Health == nil {
		writeMessage(w, http.StatusOK, "ok")
		return
	}
	rep := s.d.Health.Last()
	status := http.StatusOK
	if !rep.OK && !rep.CheckedAt.IsZero() {
		status = http.StatusServiceUnavailable
	}
	writeData(w, status, "ok", rep)
}
