package retry

import (
	"sync"
	"time"
)

// TaskState tracks retry attempts for one task.
type TaskState struct {
	TaskID     string    `json:"task_id"`
	Sequence   uint64    `json:"sequence_number"`
	RetryCount int       `json:"retry_count"`
	LastError  string    `json:"last_error,omitempty"`
	LastTry    time.Time `json:"last_try"`
	Succeeded  bool      `json:"succeeded,omitempty"`
}

// Tracker manages retry state for tasks the monitor has attempted to bid on.
// It is thread-safe and can be used concurrently.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]*TaskState
	now    func() time.Time
}

// NewTracker creates a new retry tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*TaskState),
		now:    time.Now,
	}
}

func (t *Tracker) getOrCreate(taskID string, seq uint64) *TaskState {
	state, exists := t.states[taskID]
	if !exists {
		state = &TaskState{TaskID: taskID, Sequence: seq}
		t.states[taskID] = state
	}
	return state
}

// RecordFailure records a failed attempt and returns the new retry count.
func (t *Tracker) RecordFailure(taskID string, seq uint64, err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.getOrCreate(taskID, seq)
	state.RetryCount++
	state.LastTry = t.now()
	if err != nil {
		state.LastError = err.Error()
	}
	return state.RetryCount
}

// RecordSuccess marks the task as done. Its state is kept until Forget.
func (t *Tracker) RecordSuccess(taskID string, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.getOrCreate(taskID, seq)
	state.Succeeded = true
	state.LastTry = t.now()
}

// Get returns a copy of the state for a task.
func (t *Tracker) Get(taskID string) (TaskState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[taskID]
	if !ok {
		return TaskState{}, false
	}
	return *state, true
}

// Pending returns the ids of tasks that have failed and not yet succeeded.
func (t *Tracker) Pending() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var pending []string
	for id, state := range t.states {
		if !state.Succeeded && state.RetryCount > 0 {
			pending = append(pending, id)
		}
	}
	return pending
}

// Forget drops every state whose sequence number is at or below seq. The
// monitor calls it after the cursor moves so the map stays bounded.
func (t *Tracker) Forget(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, state := range t.states {
		if state.Sequence <= seq {
			delete(t.states, id)
		}
	}
}

// Len returns the number of tracked tasks.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}
