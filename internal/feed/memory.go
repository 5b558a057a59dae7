package feed

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Feed. Sequence numbers start at 1 unless events
// are added with explicit numbers.
type Memory struct {
	mu       sync.Mutex
	events   []Event
	next     uint64
	failures []error
	queries  int
}

// NewMemory creates an empty feed.
func NewMemory() *Memory {
	return &Memory{next: 1}
}

// Append adds an event with the next sequence number and returns it.
func (m *Memory) Append(eventType string, data any) uint64 {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := m.next
	m.next++
	m.events = append(m.events, Event{SequenceNumber: seq, Type: eventType, Data: raw})
	return seq
}

// AppendTask adds a TaskPublished event.
func (m *Memory) AppendTask(taskID string, maxBudget uint64) uint64 {
	return m.Append("TaskPublishedEvent", TaskPublished{TaskID: taskID, MaxBudget: maxBudget})
}

// AppendAt adds an event with an explicit sequence number, allowing gaps.
func (m *Memory) AppendAt(seq uint64, eventType string, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{SequenceNumber: seq, Type: eventType, Data: data})
	if seq >= m.next {
		m.next = seq + 1
	}
}

// FailNext makes the next len(errs) queries fail with the given errors.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// Queries returns how many times Query was called.
func (m *Memory) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// Query implements Feed.
func (m *Memory) Query(ctx context.Context, since uint64, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries++
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	events := make([]Event, len(m.events))
	copy(events, m.events)
	return normalize(events, since, limit), nil
}

var _ Feed = (*Memory)(nil)
