package movement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StockSource supplies the existencia shown to the user for exit checks and
// learns about stock changes made by a submission.
type StockSource interface {
	KnownStock(ctx context.Context, bookID int64) (int64, error)
	StockChanged(bookID int64)
}

// JournalEntry is the local trace of one submission.
type JournalEntry struct {
	ID             string    `json:"id"`
	Direction      string    `json:"direccion"`
	TypeID         int64     `json:"tipo"`
	BookID         int64     `json:"libro"`
	Quantity       int64     `json:"cantidad"`
	Amount         string    `json:"monto"`
	HeaderID       int64     `json:"header_id,omitempty"`
	State          State     `json:"estado"`
	Path           []State   `json:"recorrido"`
	ErrorCode      string    `json:"code,omitempty"`
	Error          string    `json:"error,omitempty"`
	RollbackFailed bool      `json:"rollback_failed,omitempty"`
	NewStock       *int64    `json:"existencia,omitempty"`
	CreatedAt      time.Time `json:"creado"`
}

type Journal interface {
	Record(ctx context.Context, e JournalEntry) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

const (
	RKMovementRecorded = "movement.recorded"
	RKMovementFailed   = "movement.failed"
)

type RecordedEvent struct {
	SubmissionID string `json:"submission_id"`
	Direction    string `json:"direction"`
	HeaderID     int64  `json:"header_id"`
	BookID       int64  `json:"book_id"`
	Quantity     int64  `json:"cantidad"`
	Amount       string `json:"monto"`
	NewStock     int64  `json:"existencia"`
}

type FailedEvent struct {
	SubmissionID   string `json:"submission_id"`
	Direction      string `json:"direction"`
	BookID         int64  `json:"book_id"`
	State          State  `json:"state"`
	Code           string `json:"code"`
	Reason         string `json:"reason"`
	HeaderID       int64  `json:"header_id,omitempty"`
	RollbackFailed bool   `json:"rollback_failed,omitempty"`
}

// Result of a submission. NewStock is set only when the stock was adjusted.
type Result struct {
	SubmissionID string
	HeaderID     int64
	NewStock     int64
	State        State
	Path         []State
}

type Coordinator struct {
	writer   *Writer
	adjuster *Adjuster
	stock    StockSource
	journal  Journal
	events   Publisher
}

type CoordinatorOption func(*Coordinator)

func WithStockSource(s StockSource) CoordinatorOption { return func(c *Coordinator) { c.stock = s } }
func WithJournal(j Journal) CoordinatorOption         { return func(c *Coordinator) { c.journal = j } }
func WithPublisher(p Publisher) CoordinatorOption     { return func(c *Coordinator) { c.events = p } }

func NewCoordinator(w *Writer, a *Adjuster, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{writer: w, adjuster: a}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit records one movement: validate, write header and detail, adjust stock.
func (c *Coordinator) Submit(ctx context.Context, d Direction, req Request) (Result, error) {
	return c.SubmitWithID(ctx, uuid.NewString(), d, req)
}

// SubmitWithID is Submit with a caller-chosen submission id (queue requests
// carry their own).
func (c *Coordinator) SubmitWithID(ctx context.Context, id string, d Direction, req Request) (Result, error) {
	t := newTracker()
	res := Result{SubmissionID: id}
	logger := log.With().Str("submission", id).Str("dir", d.String()).Int64("book", req.BookID).Logger()

	v, err := c.validate(ctx, t, d, req)
	if err == nil {
		res.HeaderID, err = c.writer.record(ctx, v, t.to)
	}
	if err == nil {
		t.to(AdjustingStock)
		res.NewStock, err = c.adjuster.Adjust(ctx, v.BookID, v.Quantity, d)
		if c.stock != nil {
			c.stock.StockChanged(v.BookID)
		}
	}
	if err != nil {
		t.to(Failed)
		logger.Warn().Err(err).Str("state", string(t.path[len(t.path)-2])).Msg("movimiento fallido")
	} else {
		t.to(Done)
		logger.Info().Int64("header", res.HeaderID).Int64("existencia", res.NewStock).Msg("movimiento registrado")
	}
	res.State = t.current
	res.Path = t.path

	c.finish(ctx, d, req, v, res, err)
	return res, err
}

func (c *Coordinator) validate(ctx context.Context, t *tracker, d Direction, req Request) (Validated, error) {
	t.to(Validating)
	v, err := Validate(d, req)
	if err != nil || d != Exit || req.KnownStock != nil || c.stock == nil {
		return v, err
	}
	available, err := c.stock.KnownStock(ctx, v.BookID)
	if err != nil {
		return Validated{}, fmt.Errorf("consultar existencia del libro %d: %w", v.BookID, err)
	}
	if err := checkStock(v, available); err != nil {
		return Validated{}, err
	}
	return v, nil
}

// finish journals the outcome and publishes the matching event. Neither may
// change the result the caller sees.
func (c *Coordinator) finish(ctx context.Context, d Direction, req Request, v Validated, res Result, err error) {
	entry := JournalEntry{
		ID:        res.SubmissionID,
		Direction: d.String(),
		TypeID:    req.TypeID,
		BookID:    req.BookID,
		Quantity:  req.Quantity.IntPart(),
		Amount:    req.Amount.String(),
		HeaderID:  res.HeaderID,
		State:     res.State,
		Path:      res.Path,
		CreatedAt: time.Now().UTC(),
	}
	var werr *WriteError
	if err == nil {
		n := res.NewStock
		entry.NewStock = &n
	} else {
		entry.ErrorCode = ErrorCode(err)
		entry.Error = err.Error()
	}
	if errors.As(err, &werr) {
		entry.HeaderID = werr.HeaderID
		entry.RollbackFailed = werr.Orphaned()
	}

	// detached: a cancelled request still leaves its trace
	bg := context.WithoutCancel(ctx)
	if c.journal != nil {
		if jerr := c.journal.Record(bg, entry); jerr != nil {
			log.Error().Err(jerr).Str("submission", res.SubmissionID).Msg("journal: record failed")
		}
	}
	if c.events == nil {
		return
	}
	var perr error
	if err == nil {
		perr = c.events.PublishJSON(bg, RKMovementRecorded, RecordedEvent{
			SubmissionID: res.SubmissionID,
			Direction:    d.String(),
			HeaderID:     res.HeaderID,
			BookID:       v.BookID,
			Quantity:     v.Quantity,
			Amount:       v.Amount.String(),
			NewStock:     res.NewStock,
		})
	} else {
		perr = c.events.PublishJSON(bg, RKMovementFailed, FailedEvent{
			SubmissionID:   res.SubmissionID,
			Direction:      d.String(),
			BookID:         req.BookID,
			State:          res.Path[len(res.Path)-2],
			Code:           entry.ErrorCode,
			Reason:         entry.Error,
			HeaderID:       entry.HeaderID,
			RollbackFailed: entry.RollbackFailed,
		})
	}
	if perr != nil {
		log.Warn().Err(perr).Str("submission", res.SubmissionID).Msg("publish movement event failed")
	}
}
