package movement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// rollbackTimeout bounds a compensating call; it runs detached from the
// caller's context so a cancelled submission still gets its undo attempt.
const rollbackTimeout = 10 * time.Second

// sagaStep is one remote write and the action that undoes it. undo is nil for
// the last step, whose failure leaves nothing of its own behind.
type sagaStep struct {
	state    State
	failCode WriteCode
	do       func(ctx context.Context) error
	undo     *rollback
}

type rollback struct {
	state State
	run   func(ctx context.Context) error
}

// sagaOutcome says which step failed and how its compensations went.
type sagaOutcome struct {
	failedAt    int // -1 si todo salió bien
	err         error
	rollbackErr error
}

// runSaga executes steps in order. When step i fails, the undo of every
// earlier step runs once, newest first; undo errors are logged and kept but
// never replace the original error.
func runSaga(ctx context.Context, steps []sagaStep, onState func(State)) sagaOutcome {
	for i, st := range steps {
		onState(st.state)
		if err := st.do(ctx); err != nil {
			out := sagaOutcome{failedAt: i, err: err}
			for j := i - 1; j >= 0; j-- {
				rb := steps[j].undo
				if rb == nil {
					continue
				}
				onState(rb.state)
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
				if rerr := rb.run(rctx); rerr != nil {
					log.Error().Err(rerr).Str("step", string(steps[j].state)).Msg("saga: rollback failed")
					if out.rollbackErr == nil {
						out.rollbackErr = rerr
					}
				}
				cancel()
			}
			return out
		}
	}
	return sagaOutcome{failedAt: -1}
}
