package movement

import "fmt"

type State string

const (
	Idle              State = "Idle"
	Validating        State = "Validating"
	WritingHeader     State = "WritingHeader"
	WritingDetail     State = "WritingDetail"
	RollingBackHeader State = "RollingBackHeader"
	AdjustingStock    State = "AdjustingStock"
	Done              State = "Done"
	Failed            State = "Failed"
)

var transitions = map[State][]State{
	Idle:              {Validating},
	Validating:        {WritingHeader, Failed},
	WritingHeader:     {WritingDetail, Failed},
	WritingDetail:     {AdjustingStock, RollingBackHeader},
	RollingBackHeader: {Failed},
	AdjustingStock:    {Done, Failed},
}

// tracker walks one submission through the state machine and keeps the path.
type tracker struct {
	current State
	path    []State
}

func newTracker() *tracker {
	return &tracker{current: Idle, path: []State{Idle}}
}

func (t *tracker) to(next State) {
	for _, allowed := range transitions[t.current] {
		if allowed == next {
			t.current = next
			t.path = append(t.path, next)
			return
		}
	}
	panic(fmt.Sprintf("movement: illegal transition %s -> %s", t.current, next))
}
