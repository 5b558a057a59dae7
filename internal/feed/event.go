package feed

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/ledger"
)

// Event is one entry of the feed.
type Event struct {
	SequenceNumber uint64          `json:"sequence_number"`
	Type           string          `json:"type,omitempty"`
	Data           json.RawMessage `json:"data"`
}

// TaskPublished is the payload of a TaskPublishedEvent.
type TaskPublished struct {
	TaskID    string `json:"task_id"`
	Creator   string `json:"creator,omitempty"`
	MaxBudget uint64 `json:"max_budget"`
	Deadline  uint64 `json:"deadline,omitempty"`
}

// Feed is an ordered, paged event source.
type Feed interface {
	// Query returns up to limit events with SequenceNumber > since in
	// ascending order.
	Query(ctx context.Context, since uint64, limit int) ([]Event, error)
}

// uintField decodes a u64 rendered as a JSON number or string.
type uintField uint64

func (u *uintField) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		return errors.NewValidationError("missing integer")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errors.NewValidationError("not an unsigned integer").WithValue(s)
	}
	*u = uintField(n)
	return nil
}

// DecodeTaskPublished validates and decodes e's payload. An event that
// cannot be decoded is malformed and will never succeed on retry.
func DecodeTaskPublished(e Event) (TaskPublished, error) {
	var wire struct {
		TaskID    string     `json:"task_id"`
		Creator   string     `json:"creator"`
		MaxBudget *uintField `json:"max_budget"`
		Deadline  *uintField `json:"deadline"`
	}
	if err := json.Unmarshal(e.Data, &wire); err != nil {
		return TaskPublished{}, errors.NewValidationError("malformed event payload").
			WithField("data").WithValue(e.SequenceNumber)
	}
	id := ledger.BytesText(strings.TrimSpace(wire.TaskID))
	if id == "" {
		return TaskPublished{}, errors.NewValidationError("event has no task_id").
			WithField("task_id").WithValue(e.SequenceNumber)
	}
	if wire.MaxBudget == nil {
		return TaskPublished{}, errors.NewValidationError("event has no max_budget").
			WithField("max_budget").WithValue(e.SequenceNumber)
	}
	tp := TaskPublished{
		TaskID:    id,
		Creator:   wire.Creator,
		MaxBudget: uint64(*wire.MaxBudget),
	}
	if wire.Deadline != nil {
		tp.Deadline = uint64(*wire.Deadline)
	}
	return tp, nil
}

// normalize drops events at or below since and sorts the rest ascending,
// so callers can rely on the Query contract even if an indexer misbehaves.
func normalize(events []Event, since uint64, limit int) []Event {
	out := events[:0]
	for _, e := range events {
		if e.SequenceNumber > since {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Event) int {
		return cmp.Compare(a.SequenceNumber, b.SequenceNumber)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
