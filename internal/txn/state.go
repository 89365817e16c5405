package txn

import "github.com/google/uuid"

// State is a step of the per-invocation transaction state machine:
//
//	Init → Opened → Active → {Committing → Committed | RollingBack → RolledBack} → Closed
//
// Opened→Closed is also possible when a failure happens before the
// transaction begins.
type State int

const (
	Init State = iota
	Opened
	Active
	Committing
	Committed
	RollingBack
	RolledBack
	Closed
)

var stateNames = [...]string{
	Init:        "init",
	Opened:      "opened",
	Active:      "active",
	Committing:  "committing",
	Committed:   "committed",
	RollingBack: "rolling_back",
	RolledBack:  "rolled_back",
	Closed:      "closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// StateObserver is notified of every state an invocation enters, in order.
// It runs on the invoking goroutine and must not block.
type StateObserver func(invocation uuid.UUID, state State)
