package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/task"
)

// DefaultModule is the Move module implementing the registry.
const DefaultModule = "bidding_system"

// Client implements Registry by submitting transactions to the contract
// deployed at a platform address.
type Client struct {
	ledger   ledger.Client
	platform string
	module   string
}

// NewClient creates a registry client for the contract at platform.
// module may be empty for DefaultModule.
func NewClient(lc ledger.Client, platform, module string) *Client {
	if module == "" {
		module = DefaultModule
	}
	return &Client{
		ledger:   lc,
		platform: ledger.NormalizeAddress(platform),
		module:   module,
	}
}

// Platform returns the normalized platform address.
func (c *Client) Platform() string {
	return c.platform
}

func (c *Client) fn(name string, args ...any) ledger.EntryFunction {
	return ledger.EntryFunction{
		Module:   c.platform + "::" + c.module,
		Function: name,
		Args:     args,
	}
}

func taskIDArg(id string) any {
	return ledger.Bytes([]byte(id))
}

func (c *Client) submit(ctx context.Context, caller ledger.Signer, op, taskID string, fn ledger.EntryFunction) (*Receipt, error) {
	tx, err := c.ledger.SubmitAndWait(ctx, caller, fn)
	if err != nil {
		return nil, c.translate(op, taskID, err)
	}
	return &Receipt{TxHash: tx.Hash, Version: tx.Version}, nil
}

// Initialize implements Registry.
func (c *Client) Initialize(ctx context.Context, caller ledger.Signer) (*Receipt, error) {
	return c.submit(ctx, caller, OpInitialize, "", c.fn(OpInitialize, ledger.Address(caller.Address())))
}

// Publish implements Registry.
func (c *Client) Publish(ctx context.Context, caller ledger.Signer, req PublishRequest) (*Receipt, error) {
	secs := uint64(0)
	if req.Deadline > 0 {
		secs = uint64(req.Deadline / time.Second)
	}
	return c.submit(ctx, caller, OpPublish, req.ID, c.fn(OpPublish,
		ledger.Address(c.platform),
		taskIDArg(req.ID),
		req.Description,
		ledger.U64(req.MaxBudget),
		ledger.U64(secs),
	))
}

// PlaceBid implements Registry.
func (c *Client) PlaceBid(ctx context.Context, caller ledger.Signer, req BidRequest) (*Receipt, error) {
	return c.submit(ctx, caller, OpPlaceBid, req.TaskID, c.fn(OpPlaceBid,
		ledger.Address(c.platform),
		taskIDArg(req.TaskID),
		ledger.U64(req.Price),
		ledger.U64(uint64(req.ReputationScore)),
	))
}

// SelectWinner implements Registry.
func (c *Client) SelectWinner(ctx context.Context, caller ledger.Signer, taskID string) (*Receipt, error) {
	return c.submit(ctx, caller, OpSelectWinner, taskID, c.fn(OpSelectWinner, ledger.Address(c.platform), taskIDArg(taskID)))
}

// CompleteTask implements Registry.
func (c *Client) CompleteTask(ctx context.Context, caller ledger.Signer, taskID string) (*Receipt, error) {
	return c.submit(ctx, caller, OpComplete, taskID, c.fn(OpComplete, ledger.Address(c.platform), taskIDArg(taskID)))
}

// CancelTask implements Registry.
func (c *Client) CancelTask(ctx context.Context, caller ledger.Signer, taskID string) (*Receipt, error) {
	return c.submit(ctx, caller, OpCancel, taskID, c.fn(OpCancel, ledger.Address(c.platform), taskIDArg(taskID)))
}

func (c *Client) view(ctx context.Context, name, taskID string, args ...any) ([]json.RawMessage, error) {
	out, err := c.ledger.View(ctx, c.fn(name, args...))
	if err != nil {
		return nil, c.translate(name, taskID, err)
	}
	if len(out) == 0 {
		return nil, errors.NewLedgerError("view "+name, errors.ErrMalformedResponse).WithRetryable(false)
	}
	return out, nil
}

// TaskExists implements Registry.
func (c *Client) TaskExists(ctx context.Context, taskID string) (bool, error) {
	out, err := c.view(ctx, "task_exists", taskID, ledger.Address(c.platform), taskIDArg(taskID))
	if err != nil {
		return false, err
	}
	var exists bool
	if err := json.Unmarshal(out[0], &exists); err != nil {
		return false, errors.Wrap(errors.ErrMalformedResponse, "task_exists")
	}
	return exists, nil
}

// GetTask implements Registry. Bids are fetched with get_task_bids when the
// task view does not embed them.
func (c *Client) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	out, err := c.view(ctx, "get_task", taskID, ledger.Address(c.platform), taskIDArg(taskID))
	if err != nil {
		if errors.Is(err, errors.ErrTaskNotFound) {
			return nil, errors.NewNotFoundError("task", taskID).WithCause(err)
		}
		return nil, err
	}
	t, err := decodeTask(out[0])
	if err != nil {
		return nil, errors.Wrapf(err, "decode task %s", taskID)
	}
	if t.ID == "" {
		t.ID = taskID
	}

	if t.Bids == nil {
		bidsOut, err := c.view(ctx, "get_task_bids", taskID, ledger.Address(c.platform), taskIDArg(taskID))
		if err != nil {
			return nil, err
		}
		var raw []wireBid
		if err := json.Unmarshal(bidsOut[0], &raw); err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedResponse, "decode bids for %s", taskID)
		}
		t.Bids = make([]task.Bid, 0, len(raw))
		for _, b := range raw {
			t.Bids = append(t.Bids, b.toBid())
		}
	}
	return t, nil
}

// Stats implements Registry.
func (c *Client) Stats(ctx context.Context) (task.Stats, error) {
	out, err := c.view(ctx, "get_platform_stats", "", ledger.Address(c.platform))
	if err != nil {
		return task.Stats{}, err
	}
	// The view returns a (total, completed, cancelled) tuple; some nodes
	// wrap it in a single array.
	if len(out) == 1 {
		var inner []json.RawMessage
		if err := json.Unmarshal(out[0], &inner); err == nil {
			out = inner
		}
	}
	if len(out) < 3 {
		return task.Stats{}, errors.Wrap(errors.ErrMalformedResponse, "get_platform_stats")
	}
	var vals [3]flexUint
	for i := range vals {
		if err := json.Unmarshal(out[i], &vals[i]); err != nil {
			return task.Stats{}, errors.Wrap(errors.ErrMalformedResponse, "get_platform_stats")
		}
	}
	return task.Stats{
		TotalTasks:     uint64(vals[0]),
		CompletedTasks: uint64(vals[1]),
		CancelledTasks: uint64(vals[2]),
	}, nil
}

// flexUint decodes a u64 the node may render as a string or a number.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexUint(n)
	return nil
}

// optionValue unwraps a Move Option rendered as {"vec":[x]} or passes a
// plain value through. It returns nil for none.
func optionValue(data json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var opt struct {
			Vec []json.RawMessage `json:"vec"`
		}
		if json.Unmarshal(trimmed, &opt) != nil || len(opt.Vec) == 0 {
			return nil
		}
		return opt.Vec[0]
	}
	return trimmed
}

type wireBid struct {
	Bidder          string   `json:"bidder"`
	Price           flexUint `json:"price"`
	ReputationScore flexUint `json:"reputation_score"`
	Timestamp       flexUint `json:"timestamp"`
}

func (b wireBid) toBid() task.Bid {
	return task.Bid{
		Bidder:          ledger.NormalizeAddress(b.Bidder),
		Price:           uint64(b.Price),
		ReputationScore: uint8(b.ReputationScore),
		Timestamp:       unixTime(uint64(b.Timestamp)),
	}
}

type wireTask struct {
	ID           string          `json:"id"`
	Creator      string          `json:"creator"`
	Description  string          `json:"description"`
	MaxBudget    flexUint        `json:"max_budget"`
	Deadline     flexUint        `json:"deadline"`
	Status       flexUint        `json:"status"`
	Bids         *[]wireBid      `json:"bids"`
	Winner       json.RawMessage `json:"winner"`
	WinningPrice json.RawMessage `json:"winning_price"`
	CreatedAt    flexUint        `json:"created_at"`
	CompletedAt  json.RawMessage `json:"completed_at"`
}

func unixTime(secs uint64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}

func decodeTask(data json.RawMessage) (*task.Task, error) {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Join(errors.ErrMalformedResponse, err)
	}
	t := &task.Task{
		ID:          ledger.BytesText(w.ID),
		Creator:     ledger.NormalizeAddress(w.Creator),
		Description: w.Description,
		MaxBudget:   uint64(w.MaxBudget),
		Deadline:    unixTime(uint64(w.Deadline)),
		Status:      task.Status(w.Status),
		CreatedAt:   unixTime(uint64(w.CreatedAt)),
	}
	if w.Bids != nil {
		t.Bids = make([]task.Bid, 0, len(*w.Bids))
		for _, b := range *w.Bids {
			t.Bids = append(t.Bids, b.toBid())
		}
	}
	if v := optionValue(w.Winner); v != nil {
		var addr string
		if json.Unmarshal(v, &addr) == nil && addr != "" && addr != "0x0" {
			t.Winner = ledger.NormalizeAddress(addr)
		}
	}
	if v := optionValue(w.WinningPrice); v != nil {
		var price flexUint
		if json.Unmarshal(v, &price) == nil {
			t.WinningPrice = uint64(price)
		}
	}
	if v := optionValue(w.CompletedAt); v != nil {
		var at flexUint
		if json.Unmarshal(v, &at) == nil {
			t.CompletedAt = unixTime(uint64(at))
		}
	}
	return t, nil
}

var _ Registry = (*Client)(nil)
