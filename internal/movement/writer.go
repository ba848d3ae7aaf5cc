package movement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/emundo/bookstock/internal/api"
)

// MovementAPI is the remote side of header/detail records.
type MovementAPI interface {
	CreateHeader(ctx context.Context, r api.MovementResource, in api.HeaderInput) (int64, error)
	CreateDetail(ctx context.Context, r api.MovementResource, in api.DetailInput) error
	DeleteHeader(ctx context.Context, r api.MovementResource, id int64) error
}

// Writer creates the header and detail of a movement as one unit.
type Writer struct {
	api      MovementAPI
	branchID int64
	now      func() time.Time
}

func NewWriter(m MovementAPI, branchID int64) *Writer {
	return &Writer{api: m, branchID: branchID, now: time.Now}
}

// Record returns the id of the new header. On a detail failure the header is
// deleted (one attempt) before the error is returned.
func (w *Writer) Record(ctx context.Context, v Validated) (int64, error) {
	return w.record(ctx, v, func(State) {})
}

func (w *Writer) record(ctx context.Context, v Validated, onState func(State)) (int64, error) {
	res := v.Direction.Resource()
	var headerID int64

	steps := []sagaStep{
		{
			state:    WritingHeader,
			failCode: HeaderCreateFailed,
			do: func(ctx context.Context) error {
				id, err := w.api.CreateHeader(ctx, res, api.HeaderInput{
					Date:     w.now().Format("2006-01-02"),
					TypeID:   v.TypeID,
					BranchID: w.branchID,
				})
				headerID = id
				return err
			},
			undo: &rollback{
				state: RollingBackHeader,
				run: func(ctx context.Context) error {
					log.Warn().Str("kind", res.Name).Int64("header", headerID).Msg("detail failed, deleting header")
					return w.api.DeleteHeader(ctx, res, headerID)
				},
			},
		},
		{
			state:    WritingDetail,
			failCode: DetailCreateFailed,
			do: func(ctx context.Context) error {
				return w.api.CreateDetail(ctx, res, api.DetailInput{
					HeaderID: headerID,
					BookID:   v.BookID,
					Quantity: v.Quantity,
					Amount:   v.Amount,
				})
			},
		},
	}

	out := runSaga(ctx, steps, onState)
	if out.failedAt < 0 {
		return headerID, nil
	}
	werr := &WriteError{Code: steps[out.failedAt].failCode, Err: out.err, RollbackErr: out.rollbackErr}
	if out.failedAt > 0 {
		werr.HeaderID = headerID
	}
	return 0, werr
}
