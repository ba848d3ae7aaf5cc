package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRabbitDropsEverything(t *testing.T) {
	r, err := NewRabbit("", "bookstock.events")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, r.PublishJSON(context.Background(), "movement.recorded", map[string]int{"book_id": 1}))
	assert.NoError(t, r.ConsumeTopic(context.Background(), "q", []string{"movement.*"}, nil))
	r.Close()
}

func TestEnvelope(t *testing.T) {
	env, err := NewEnvelope("movement.failed", map[string]any{"book_id": 7, "code": "DetailCreateFailed"})
	require.NoError(t, err)
	_, err = uuid.Parse(env.ID)
	assert.NoError(t, err)
	assert.Equal(t, "movement.failed", env.Type)
	assert.False(t, env.Timestamp.IsZero())
	assert.JSONEq(t, `{"book_id":7,"code":"DetailCreateFailed"}`, string(env.Payload))

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.ElementsMatch(t, []string{"id", "type", "timestamp", "payload"}, keys(back))

	_, err = NewEnvelope("x", make(chan int))
	assert.Error(t, err)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type listener struct{ books []int64 }

func (l *listener) StockChanged(id int64) { l.books = append(l.books, id) }

func TestStockInvalidator(t *testing.T) {
	l := &listener{}
	h := StockInvalidator(l)

	env, _ := NewEnvelope("movement.recorded", map[string]any{"book_id": 9, "existencia": 3})
	require.NoError(t, h(env))
	env, _ = NewEnvelope("movement.failed", map[string]any{"code": "MissingBook"})
	require.NoError(t, h(env))
	assert.Equal(t, []int64{9}, l.books)

	assert.Error(t, h(Envelope{Type: "movement.recorded", Payload: json.RawMessage(`[1]`)}))
}
