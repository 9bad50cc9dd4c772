package monitor

import (
	"sync"
	"time"
)

// FailureState describes a run of consecutive fetch failures for one service.
type FailureState struct {
	Consecutive int       `json:"consecutive"`
	LastError   string    `json:"last_error"`
	Since       time.Time `json:"since"`
}

// FailureTracker keeps track of consecutive log-fetch failures per service.
// It is safe for concurrent use.
type FailureTracker struct {
	mu     sync.Mutex
	states map[string]*FailureState
	now    func() time.Time
}

// NewFailureTracker creates a new tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{
		states: make(map[string]*FailureState),
		now:    time.Now,
	}
}

// Failed records a failure for key and returns the consecutive count.
func (t *FailureTracker) Failed(key string, err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[key]
	if !ok {
		st = &FailureState{Since: t.now().UTC()}
		t.states[key] = st
	}
	st.Consecutive++
	if err != nil {
		st.LastError = err.Error()
	}
	return st.Consecutive
}

// Succeeded ends any failure run for key and returns how long that run was.
func (t *FailureTracker) Succeeded(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[key]
	if !ok {
		return 0
	}
	delete(t.states, key)
	return st.Consecutive
}

// Count returns the consecutive failure count for key.
func (t *FailureTracker) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[key]; ok {
		return st.Consecutive
	}
	return 0
}

// Snapshot copies the state of every currently failing service.
func (t *FailureTracker) Snapshot() map[string]FailureState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]FailureState, len(t.states))
	for k, st := range t.states {
		out[k] = *st
	}
	return out
}
