package service

import (
	"sync"
	"time"

	"github.com/eversafe/go-vault-sync/models"
)

// StateTracker holds the observable state of the vault database. UI layers
// subscribe to it; the vault service is the only writer.
type StateTracker struct {
	mu          sync.RWMutex
	current     models.DatabaseState
	subscribers []func(models.DatabaseState)
}

// NewStateTracker starts in the Uninitialized state.
func NewStateTracker() *StateTracker {
	return &StateTracker{
		current: models.DatabaseState{
			Status:      models.DatabaseUninitialized,
			LastUpdated: time.Now(),
		},
	}
}

// Current returns the latest published state.
func (t *StateTracker) Current() models.DatabaseState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Subscribe registers a callback invoked on every state change. Callbacks run
// synchronously on the updating goroutine and must not block.
func (t *StateTracker) Subscribe(fn func(models.DatabaseState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

// Update publishes a new status without a message.
func (t *StateTracker) Update(status models.DatabaseStatus) {
	t.UpdateWithMessage(status, "")
}

// UpdateWithMessage publishes a new status with a user-facing message. Every
// failure path goes through here so no error is ever silently dropped.
func (t *StateTracker) UpdateWithMessage(status models.DatabaseStatus, message string) {
	t.mu.Lock()
	state := models.DatabaseState{
		Status:      status,
		Message:     message,
		LastUpdated: time.Now(),
	}
	t.current = state
	subscribers := make([]func(models.DatabaseState), len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}
