package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier, e.g. "bid.placed".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeStateChanged    = "monitor.state_changed"
	TypePollCompleted   = "monitor.poll_completed"
	TypeBidPlaced       = "bid.placed"
	TypeBidSkipped      = "bid.skipped"
	TypeBidFailed       = "bid.failed"
	TypeCheckpointSaved = "checkpoint.saved"
	TypeFeedError       = "feed.error"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Monitor Events
// -----------------------------------------------------------------------------

// StateChangedEvent is emitted on every monitor state transition.
type StateChangedEvent struct {
	baseEvent
	From string
	To   string
}

// NewStateChangedEvent creates a StateChangedEvent.
func NewStateChangedEvent(from, to string) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(TypeStateChanged),
		From:      from,
		To:        to,
	}
}

// PollCompletedEvent is emitted after each successful feed query.
type PollCompletedEvent struct {
	baseEvent
	Since  uint64 // Cursor the query started from
	Events int    // Number of events returned
}

// NewPollCompletedEvent creates a PollCompletedEvent.
func NewPollCompletedEvent(since uint64, events int) PollCompletedEvent {
	return PollCompletedEvent{
		baseEvent: newBaseEvent(TypePollCompleted),
		Since:     since,
		Events:    events,
	}
}

// FeedErrorEvent is emitted when a feed query fails.
type FeedErrorEvent struct {
	baseEvent
	Since uint64
	Err   error
}

// NewFeedErrorEvent creates a FeedErrorEvent.
func NewFeedErrorEvent(since uint64, err error) FeedErrorEvent {
	return FeedErrorEvent{
		baseEvent: newBaseEvent(TypeFeedError),
		Since:     since,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Bid Events
// -----------------------------------------------------------------------------

// BidPlacedEvent is emitted when a bid commits or is found already on the
// ledger.
type BidPlacedEvent struct {
	baseEvent
	Sequence  uint64
	TaskID    string
	Price     uint64
	TxHash    string // Empty for a duplicate
	Duplicate bool
}

// NewBidPlacedEvent creates a BidPlacedEvent.
func NewBidPlacedEvent(seq uint64, taskID string, price uint64, txHash string, duplicate bool) BidPlacedEvent {
	return BidPlacedEvent{
		baseEvent: newBaseEvent(TypeBidPlaced),
		Sequence:  seq,
		TaskID:    taskID,
		Price:     price,
		TxHash:    txHash,
		Duplicate: duplicate,
	}
}

// BidSkippedEvent is emitted when an event is passed over for good.
type BidSkippedEvent struct {
	baseEvent
	Sequence uint64
	TaskID   string
	Reason   string
}

// NewBidSkippedEvent creates a BidSkippedEvent.
func NewBidSkippedEvent(seq uint64, taskID, reason string) BidSkippedEvent {
	return BidSkippedEvent{
		baseEvent: newBaseEvent(TypeBidSkipped),
		Sequence:  seq,
		TaskID:    taskID,
		Reason:    reason,
	}
}

// BidFailedEvent is emitted when a submission fails and will be retried.
type BidFailedEvent struct {
	baseEvent
	Sequence uint64
	TaskID   string
	Attempt  int
	Err      error
	RetryIn  time.Duration
}

// NewBidFailedEvent creates a BidFailedEvent.
func NewBidFailedEvent(seq uint64, taskID string, attempt int, err error, retryIn time.Duration) BidFailedEvent {
	return BidFailedEvent{
		baseEvent: newBaseEvent(TypeBidFailed),
		Sequence:  seq,
		TaskID:    taskID,
		Attempt:   attempt,
		Err:       err,
		RetryIn:   retryIn,
	}
}

// -----------------------------------------------------------------------------
// Checkpoint Events
// -----------------------------------------------------------------------------

// CheckpointSavedEvent is emitted after the cursor is persisted.
type CheckpointSavedEvent struct {
	baseEvent
	Sequence uint64
	Final    bool // Written during shutdown
}

// NewCheckpointSavedEvent creates a CheckpointSavedEvent.
func NewCheckpointSavedEvent(seq uint64, final bool) CheckpointSavedEvent {
	return CheckpointSavedEvent{
		baseEvent: newBaseEvent(TypeCheckpointSaved),
		Sequence:  seq,
		Final:     final,
	}
}
