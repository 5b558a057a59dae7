package task

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task. The numeric values match the
// codes reported by the on-ledger registry.
type Status uint8

const (
	// StatusPublished means the task is open for bids.
	StatusPublished Status = 1

	// StatusAssigned means a winner was selected and the work is underway.
	StatusAssigned Status = 2

	// StatusCompleted means the winner delivered and escrow was released.
	StatusCompleted Status = 3

	// StatusCancelled means the creator withdrew the task and was refunded.
	StatusCancelled Status = 4
)

// String returns the upper-case status name, or UNKNOWN(n) for codes the
// registry does not define.
func (s Status) String() string {
	switch s {
	case StatusPublished:
		return "PUBLISHED"
	case StatusAssigned:
		return "ASSIGNED"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether s is one of the four defined codes.
func (s Status) IsValid() bool {
	return s >= StatusPublished && s <= StatusCancelled
}

// transitions lists every allowed forward edge of the lifecycle.
var transitions = map[Status][]Status{
	StatusPublished: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusCompleted},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MaxReputation is the highest reputation score a bid may carry.
const MaxReputation = 100

// Bid is one provider's offer on a task.
type Bid struct {
	// Bidder is the account address of the provider.
	Bidder string `json:"bidder"`

	// Price is the amount asked, 0 < Price <= Task.MaxBudget.
	Price uint64 `json:"price"`

	// ReputationScore is self-reported, 0..100.
	ReputationScore uint8 `json:"reputation_score"`

	// Timestamp is when the registry accepted the bid.
	Timestamp time.Time `json:"timestamp"`
}

// Task is the registry's record of a published unit of work.
type Task struct {
	ID          string    `json:"id"`
	Creator     string    `json:"creator"`
	Description string    `json:"description"`
	MaxBudget   uint64    `json:"max_budget"`
	Deadline    time.Time `json:"deadline"`
	Status      Status    `json:"status"`

	// Bids are kept in insertion order and cleared once the task is terminal.
	Bids []Bid `json:"bids"`

	// Winner and WinningPrice are set only on the transition to ASSIGNED.
	Winner       string `json:"winner,omitempty"`
	WinningPrice uint64 `json:"winning_price,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// HasWinner reports whether a winner has been selected.
func (t *Task) HasWinner() bool {
	return t.Winner != ""
}

// AcceptsBids reports whether a bid placed at now could be accepted.
func (t *Task) AcceptsBids(now time.Time) bool {
	return t.Status == StatusPublished && now.Before(t.Deadline)
}

// HasBidFrom reports whether bidder already has a bid on the task.
func (t *Task) HasBidFrom(bidder string) bool {
	for _, b := range t.Bids {
		if b.Bidder == bidder {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to callers.
func (t *Task) Clone() *Task {
	c := *t
	c.Bids = append([]Bid(nil), t.Bids...)
	return &c
}

// Stats is the platform-wide task counters.
type Stats struct {
	TotalTasks     uint64 `json:"total_tasks"`
	CompletedTasks uint64 `json:"completed_tasks"`
	CancelledTasks uint64 `json:"cancelled_tasks"`
}

// SuccessRate returns completed/total as a percentage, or 0 with no tasks.
func (s Stats) SuccessRate() float64 {
	if s.TotalTasks == 0 {
		return 0
	}
	return float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
}

// Settlement is the escrow release a terminal transition produces.
// ToWinner + ToCreator always equals the task's MaxBudget.
type Settlement struct {
	Winner    string `json:"winner,omitempty"`
	ToWinner  uint64 `json:"to_winner"`
	Creator   string `json:"creator"`
	ToCreator uint64 `json:"to_creator"`
}

// Total returns the amount released from escrow.
func (s Settlement) Total() uint64 {
	return s.ToWinner + s.ToCreator
}

// CompletionSettlement pays the winning price to the winner and refunds the
// remainder of the budget to the creator.
func CompletionSettlement(t *Task) Settlement {
	return Settlement{
		Winner:    t.Winner,
		ToWinner:  t.WinningPrice,
		Creator:   t.Creator,
		ToCreator: t.MaxBudget - t.WinningPrice,
	}
}

// CancellationSettlement refunds the full budget to the creator.
func CancellationSettlement(t *Task) Settlement {
	return Settlement{
		Creator:   t.Creator,
		ToCreator: t.MaxBudget,
	}
}
