package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapListShapesAgree(t *testing.T) {
	bare := []byte(`[{"id":1,"nombre":"Novela"},{"id":2,"nombre":"Poesía"}]`)
	envelope := []byte(`{"count":2,"next":null,"previous":null,"results":[{"id":1,"nombre":"Novela"},{"id":2,"nombre":"Poesía"}]}`)

	a, err := UnwrapList(bare)
	require.NoError(t, err)
	b, err := UnwrapList(envelope)
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a, b)

	var first Category
	require.NoError(t, json.Unmarshal(b[0], &first))
	assert.Equal(t, Category{ID: 1, Nombre: "Novela"}, first)
}

func TestUnwrapListEmpty(t *testing.T) {
	a, err := UnwrapList([]byte(`[]`))
	require.NoError(t, err)
	b, err := UnwrapList([]byte(`{"results":[]}`))
	require.NoError(t, err)
	assert.Empty(t, a)
	assert.Equal(t, a, b)
}

func TestUnwrapListRejectsOtherShapes(t *testing.T) {
	for _, in := range []string{``, `{"id":3}`, `"hola"`, `42`} {
		_, err := UnwrapList([]byte(in))
		assert.Error(t, err, in)
	}
}
