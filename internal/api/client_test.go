package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken() (string, error) { return string(s), nil }

func TestBearerHeaderAndEnvelopeList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/InventarioLibros/Libros/libros/", r.URL.Path)
		_, _ = io.WriteString(w, `{"results":[{"id":7,"nombre":"Rayuela","categorias":2,"categorias_nombre":"Novela","costoactual":"250.00","existencia":4}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithAuth(&BearerAuth{Tokens: staticToken("abc")}))
	books, err := c.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(7), books[0].ID)
	assert.Equal(t, "Novela", books[0].CategoriaNombre)
	assert.True(t, books[0].CostoActual.Equal(decimal.RequireFromString("250")))
	assert.Equal(t, int64(4), books[0].Existencia)
}

func TestBearerWithoutTokenFailsBeforeSending(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := New(srv.URL, WithAuth(&BearerAuth{Tokens: staticToken("")}))
	_, err := c.ListCategories(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, called)
}

func TestStatusErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"cantidad":["Este campo es requerido."]}`)
	}))
	defer srv.Close()

	err := New(srv.URL).CreateDetail(context.Background(), EntryResource, DetailInput{HeaderID: 1, BookID: 2})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Body, "cantidad")
}

func TestNetworkErrorOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(20*time.Millisecond)).GetBook(context.Background(), 1)
	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMovementPayloadsFollowResource(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		m["_path"] = r.URL.Path
		got = append(got, m)
		if r.URL.Path == "/Catalogos/Salida/salida/" {
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":31}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL)
	id, err := c.CreateHeader(context.Background(), ExitResource, HeaderInput{Date: "2025-03-01", TypeID: 2, BranchID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
	require.NoError(t, c.CreateDetail(context.Background(), ExitResource, DetailInput{
		HeaderID: id, BookID: 9, Quantity: 3, Amount: decimal.RequireFromString("199.90"),
	}))

	require.Len(t, got, 2)
	assert.Equal(t, "2025-03-01", got[0]["fechasalida"])
	assert.EqualValues(t, 2, got[0]["tiposalida_id"])
	assert.EqualValues(t, 1, got[0]["sucursalid_id"])
	assert.Equal(t, "/Catalogos/Salida/detallesalida/", got[1]["_path"])
	assert.EqualValues(t, 31, got[1]["salida"])
	assert.EqualValues(t, 9, got[1]["libro"])
	assert.EqualValues(t, 3, got[1]["cantidad"])
	assert.Equal(t, "199.9", got[1]["costosalida"])
}

func TestBookUpdateCarriesUnknownFields(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"nombre":"Ficciones","categorias":1,"costoactual":"120.50","existencia":10,"codigo":"LIB-5","autor":"Borges"}`), &b))
	b.Existencia = 15

	out, err := json.Marshal(b)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "LIB-5", m["codigo"])
	assert.Equal(t, "Borges", m["autor"])
	assert.EqualValues(t, 15, m["existencia"])
	assert.Equal(t, "120.50", m["costoactual"])
}

func TestBookUpdateKeepsUntouchedFieldsVerbatim(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"nombre":"Ficciones","categorias":null,"costoactual":null,"existencia":10}`), &b))
	b.Existencia = 7

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"nombre":"Ficciones","categorias":null,"costoactual":null,"existencia":7}`, string(out))
}

func TestBookUpdateWritesEditedFields(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"nombre":"Ficciones","categorias":1,"costoactual":"12.50","existencia":10}`), &b))
	b.CostoActual = decimal.RequireFromString("13")
	b.Categoria = 2

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"nombre":"Ficciones","categorias":2,"costoactual":"13","existencia":10}`, string(out))
}

func TestLocalBookEncodesAllFields(t *testing.T) {
	out, err := json.Marshal(Book{ID: 1, Nombre: "Rayuela", Categoria: 3, CostoActual: decimal.NewFromInt(9), Existencia: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"nombre":"Rayuela","categorias":3,"costoactual":"9","existencia":2}`, string(out))
}
