package registry

import (
	"context"
	"time"

	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/task"
)

// Operation names used in RegistryError.Operation and entry function names.
const (
	OpInitialize   = "initialize"
	OpPublish      = "publish_task"
	OpPlaceBid     = "place_bid"
	OpSelectWinner = "select_winner"
	OpComplete     = "complete_task"
	OpCancel       = "cancel_task"
)

// PublishRequest describes a task to publish.
type PublishRequest struct {
	ID          string
	Description string
	MaxBudget   uint64
	// Deadline is relative to the time the registry accepts the task.
	Deadline time.Duration
}

// BidRequest describes a bid to place.
type BidRequest struct {
	TaskID          string
	Price           uint64
	ReputationScore uint8
}

// Receipt identifies the committed transaction that applied an operation.
type Receipt struct {
	TxHash  string
	Version uint64
}

// Registry is the task lifecycle contract as seen by a client. Mutating
// operations are signed by caller; rejections are *errors.RegistryError.
type Registry interface {
	Initialize(ctx context.Context, caller ledger.Signer) (*Receipt, error)
	Publish(ctx context.Context, caller ledger.Signer, req PublishRequest) (*Receipt, error)
	PlaceBid(ctx context.Context, caller ledger.Signer, req BidRequest) (*Receipt, error)
	SelectWinner(ctx context.Context, caller ledger.Signer, taskID string) (*Receipt, error)
	CompleteTask(ctx context.Context, caller ledger.Signer, taskID string) (*Receipt, error)
	CancelTask(ctx context.Context, caller ledger.Signer, taskID string) (*Receipt, error)

	GetTask(ctx context.Context, taskID string) (*task.Task, error)
	TaskExists(ctx context.Context, taskID string) (bool, error)
	Stats(ctx context.Context) (task.Stats, error)
}
