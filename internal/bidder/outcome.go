package bidder

import (
	"github.com/a2a-aptos/bidagent/internal/errors"
)

// Outcome classifies how a bid attempt ended.
type Outcome int

const (
	// Failed means the attempt hit a transient or unknown error. The event
	// must be retried.
	Failed Outcome = iota
	// Placed means the bid committed.
	Placed
	// Duplicate means this agent had already bid on the task.
	Duplicate
	// Resolved means the task is no longer open (assigned, completed,
	// cancelled or gone).
	Resolved
	// Skipped means the bid can never succeed (deadline passed, bad price,
	// malformed event).
	Skipped
)

var outcomeNames = map[Outcome]string{
	Failed:    "failed",
	Placed:    "placed",
	Duplicate: "duplicate",
	Resolved:  "resolved",
	Skipped:   "skipped",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Advances reports whether the cursor may move past the event.
func (o Outcome) Advances() bool {
	return o != Failed
}

// Classify maps a submission error to an Outcome. nil is Placed.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Placed
	case errors.Is(err, errors.ErrDuplicateBid):
		return Duplicate
	case errors.Is(err, errors.ErrTaskNotOpen), errors.Is(err, errors.ErrTaskNotFound):
		return Resolved
	case errors.Is(err, errors.ErrDeadlinePassed),
		errors.Is(err, errors.ErrInvalidPrice),
		errors.Is(err, errors.ErrInvalidReputation),
		errors.Is(err, errors.ErrInvalidInput):
		return Skipped
	default:
		// Unrecognized aborts land here too; they may be a contract
		// upgrade we do not know yet, so the event is retried.
		return Failed
	}
}
