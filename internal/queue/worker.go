// Package queue accepts movement submissions from a RabbitMQ work queue and
// answers on a result queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/emundo/bookstock/internal/movement"
)

// Mensajes
type MovementRequest struct {
	RequestID  string          `json:"request_id"`
	Direction  string          `json:"direction"`
	Tipo       int64           `json:"tipo"`
	Libro      int64           `json:"libro"`
	Cantidad   decimal.Decimal `json:"cantidad"`
	Monto      decimal.Decimal `json:"monto"`
	Existencia *int64          `json:"existencia,omitempty"`
}

type MovementResult struct {
	RequestID  string `json:"request_id"`
	State      string `json:"state"` // DONE | FAILED
	HeaderID   int64  `json:"header_id,omitempty"`
	Existencia *int64 `json:"existencia,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	// Duplicate is set when request_id was already processed; nothing is
	// written again and the stored outcome is returned.
	Duplicate bool `json:"duplicate,omitempty"`
}

const (
	StateDone   = "DONE"
	StateFailed = "FAILED"
)

// Submitter is what the worker drives; *movement.Coordinator in production.
type Submitter interface {
	SubmitWithID(ctx context.Context, id string, d movement.Direction, req movement.Request) (movement.Result, error)
}

// History looks up earlier submissions by id; the movement journal in production.
type History interface {
	Get(ctx context.Context, id string) (movement.JournalEntry, error)
}

type Worker struct {
	sub     Submitter
	history History
}

type WorkerOption func(*Worker)

// WithHistory makes redelivered requests answer from the journal instead of
// writing the movement a second time.
func WithHistory(h History) WorkerOption { return func(w *Worker) { w.history = h } }

func NewWorker(s Submitter, opts ...WorkerOption) *Worker {
	w := &Worker{sub: s}
	for _, o := range opts {
		o(w)
	}
	return w
}

func replay(d movement.Direction, e movement.JournalEntry) MovementResult {
	res := MovementResult{RequestID: e.ID, HeaderID: e.HeaderID, Duplicate: true}
	if e.State == movement.Done {
		res.State, res.Existencia, res.Message = StateDone, e.NewStock, movement.UserMessage(d, nil)
		return res
	}
	res.State, res.Code, res.Message = StateFailed, e.ErrorCode, e.Error
	return res
}

// Handle processes one delivery body. ok is false when the body cannot be
// decoded at all; there is then nobody to answer.
func (w *Worker) Handle(ctx context.Context, body []byte) (res MovementResult, ok bool) {
	var req MovementRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Error().Err(err).Msg("movement.request: invalid json")
		return MovementResult{}, false
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	res = MovementResult{RequestID: req.RequestID}

	d, err := movement.ParseDirection(req.Direction)
	if err != nil {
		res.State, res.Code, res.Message = StateFailed, "InvalidDirection", err.Error()
		return res, true
	}
	log.Info().Str("request", req.RequestID).Str("dir", d.String()).Int64("book", req.Libro).Msg("movement.request: received")

	if w.history != nil {
		if e, err := w.history.Get(ctx, req.RequestID); err == nil {
			log.Warn().Str("request", req.RequestID).Str("state", string(e.State)).Msg("movement.request: already processed")
			return replay(d, e), true
		}
	}

	out, err := w.sub.SubmitWithID(ctx, req.RequestID, d, movement.Request{
		TypeID:     req.Tipo,
		BookID:     req.Libro,
		Quantity:   req.Cantidad,
		Amount:     req.Monto,
		KnownStock: req.Existencia,
	})
	res.Message = movement.UserMessage(d, err)
	if err != nil {
		res.State = StateFailed
		res.Code = movement.ErrorCode(err)
		if res.Code == "" && len(out.Path) >= 2 {
			res.Code = fmt.Sprintf("Error@%s", out.Path[len(out.Path)-2])
		}
		return res, true
	}
	res.State = StateDone
	res.HeaderID = out.HeaderID
	n := out.NewStock
	res.Existencia = &n
	return res, true
}
