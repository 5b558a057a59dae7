package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/task"
)

// Memory is an in-process registry. All methods are safe for concurrent
// use; every operation is applied fully or not at all.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	initialized bool
	owner       string
	tasks       map[string]*task.Task
	order       []string
	stats       task.Stats
	escrow      uint64
	balances    map[string]int64
	version     uint64
}

// MemoryOption configures a Memory registry.
type MemoryOption func(*Memory)

// WithClock sets the time source used for deadlines and timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// Preinitialized marks the platform as already initialized by owner.
func Preinitialized(owner string) MemoryOption {
	return func(m *Memory) {
		m.initialized = true
		m.owner = ledger.NormalizeAddress(owner)
	}
}

// NewMemory creates an empty, uninitialized registry.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:      time.Now,
		tasks:    make(map[string]*task.Task),
		balances: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// commit records a successful operation. Caller holds mu.
func (m *Memory) commit() *Receipt {
	m.version++
	return &Receipt{
		TxHash:  fmt.Sprintf("0x%064x", m.version),
		Version: m.version,
	}
}

func reject(op, taskID string, cause error) error {
	return errors.NewRegistryError(op, cause).WithTaskID(taskID)
}

// lookup returns the task or a TaskNotFound rejection. Caller holds mu.
func (m *Memory) lookup(op, taskID string) (*task.Task, error) {
	if !m.initialized {
		return nil, reject(op, taskID, errors.ErrPlatformNotInitialized)
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, reject(op, taskID, errors.ErrTaskNotFound)
	}
	return t, nil
}

// Initialize implements Registry.
func (m *Memory) Initialize(_ context.Context, caller ledger.Signer) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil, reject(OpInitialize, "", errors.ErrPlatformExists)
	}
	m.initialized = true
	m.owner = caller.Address()
	return m.commit(), nil
}

// Publish implements Registry. The full budget moves from the creator into
// escrow.
func (m *Memory) Publish(_ context.Context, caller ledger.Signer, req PublishRequest) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, reject(OpPublish, req.ID, errors.ErrPlatformNotInitialized)
	}
	if _, exists := m.tasks[req.ID]; exists {
		return nil, reject(OpPublish, req.ID, errors.ErrDuplicateTaskID)
	}
	if req.MaxBudget == 0 {
		return nil, reject(OpPublish, req.ID, errors.ErrInvalidBudget)
	}
	if req.Deadline <= 0 {
		return nil, reject(OpPublish, req.ID, errors.ErrInvalidDeadline)
	}

	now := m.now()
	creator := caller.Address()
	m.tasks[req.ID] = &task.Task{
		ID:          req.ID,
		Creator:     creator,
		Description: req.Description,
		MaxBudget:   req.MaxBudget,
		Deadline:    now.Add(req.Deadline),
		Status:      task.StatusPublished,
		Bids:        []task.Bid{},
		CreatedAt:   now,
	}
	m.order = append(m.order, req.ID)
	m.stats.TotalTasks++
	m.escrow += req.MaxBudget
	m.balances[creator] -= int64(req.MaxBudget)
	return m.commit(), nil
}

// PlaceBid implements Registry.
func (m *Memory) PlaceBid(_ context.Context, caller ledger.Signer, req BidRequest) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(OpPlaceBid, req.TaskID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	switch {
	case t.Status != task.StatusPublished:
		return nil, reject(OpPlaceBid, req.TaskID, errors.ErrTaskNotOpen)
	case !now.Before(t.Deadline):
		return nil, reject(OpPlaceBid, req.TaskID, errors.ErrDeadlinePassed)
	case req.Price == 0 || req.Price > t.MaxBudget:
		return nil, reject(OpPlaceBid, req.TaskID, errors.ErrInvalidPrice)
	case req.ReputationScore > task.MaxReputation:
		return nil, reject(OpPlaceBid, req.TaskID, errors.ErrInvalidReputation)
	case t.HasBidFrom(caller.Address()):
		return nil, reject(OpPlaceBid, req.TaskID, errors.ErrDuplicateBid)
	}

	t.Bids = append(t.Bids, task.Bid{
		Bidder:          caller.Address(),
		Price:           req.Price,
		ReputationScore: req.ReputationScore,
		Timestamp:       now,
	})
	return m.commit(), nil
}

// better reports whether a beats b: lower price, then higher reputation.
// Equal bids keep the earlier one.
func better(a, b task.Bid) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ReputationScore > b.ReputationScore
}

// SelectWinner implements Registry.
func (m *Memory) SelectWinner(_ context.Context, _ ledger.Signer, taskID string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(OpSelectWinner, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusPublished {
		return nil, reject(OpSelectWinner, taskID, errors.ErrTaskNotOpen)
	}
	if len(t.Bids) == 0 {
		return nil, reject(OpSelectWinner, taskID, errors.ErrNoBids)
	}

	best := t.Bids[0]
	for _, b := range t.Bids[1:] {
		if better(b, best) {
			best = b
		}
	}
	t.Status = task.StatusAssigned
	t.Winner = best.Bidder
	t.WinningPrice = best.Price
	return m.commit(), nil
}

// CompleteTask implements Registry. Only the winner may complete; escrow is
// split between winner and creator.
func (m *Memory) CompleteTask(_ context.Context, caller ledger.Signer, taskID string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(OpComplete, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusAssigned {
		return nil, reject(OpComplete, taskID, errors.ErrNotAssigned)
	}
	if caller.Address() != t.Winner {
		return nil, reject(OpComplete, taskID, errors.ErrNotWinner)
	}

	m.settle(task.CompletionSettlement(t))
	t.Status = task.StatusCompleted
	t.CompletedAt = m.now()
	t.Bids = []task.Bid{}
	m.stats.CompletedTasks++
	return m.commit(), nil
}

// CancelTask implements Registry. The full budget is refunded.
func (m *Memory) CancelTask(_ context.Context, _ ledger.Signer, taskID string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(OpCancel, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusPublished {
		return nil, reject(OpCancel, taskID, errors.ErrTaskNotOpen)
	}

	m.settle(task.CancellationSettlement(t))
	t.Status = task.StatusCancelled
	t.Bids = []task.Bid{}
	m.stats.CancelledTasks++
	return m.commit(), nil
}

// settle releases escrow. Caller holds mu.
func (m *Memory) settle(s task.Settlement) {
	m.escrow -= s.Total()
	if s.ToWinner > 0 {
		m.balances[s.Winner] += int64(s.ToWinner)
	}
	m.balances[s.Creator] += int64(s.ToCreator)
}

// GetTask implements Registry. The returned task is a copy.
func (m *Memory) GetTask(_ context.Context, taskID string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, errors.NewNotFoundError("task", taskID).WithCause(errors.ErrTaskNotFound)
	}
	return t.Clone(), nil
}

// TaskExists implements Registry.
func (m *Memory) TaskExists(_ context.Context, taskID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[taskID]
	return ok, nil
}

// Stats implements Registry.
func (m *Memory) Stats(_ context.Context) (task.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return task.Stats{}, errors.NewRegistryError("get_platform_stats", errors.ErrPlatformNotInitialized)
	}
	return m.stats, nil
}

// Tasks returns copies of all tasks in publish order.
func (m *Memory) Tasks() []*task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*task.Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id].Clone())
	}
	return out
}

// Escrow returns the total amount currently held in escrow.
func (m *Memory) Escrow() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escrow
}

// Balance returns the net amount addr has received from (positive) or paid
// into (negative) the registry.
func (m *Memory) Balance(addr string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[ledger.NormalizeAddress(addr)]
}

// Conserved reports whether escrow plus every net balance sums to zero,
// i.e. no funds were created or lost.
func (m *Memory) Conserved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := int64(m.escrow)
	for _, b := range m.balances {
		sum += b
	}
	return sum == 0
}

var _ Registry = (*Memory)(nil)
