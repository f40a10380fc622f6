package session

import (
	"sync"

	"codegate/entity"
)

// Tracker holds the single pending action per user. State is process-local:
// a restart clears every outstanding prompt, which only costs the user one
// extra menu tap.
type Tracker struct {
	mu      sync.RWMutex
	pending map[int64]entity.Action
}

func New() *Tracker {
	return &Tracker{
		pending: make(map[int64]entity.Action),
	}
}

// Set records the pending action for a user, replacing any previous one.
func (t *Tracker) Set(userId int64, action entity.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if action == entity.ActionNone {
		delete(t.pending, userId)
		return
	}
	t.pending[userId] = action
}

// Take returns the pending action and clears it in the same step.
// Consumption is unconditional: the caller resolves the action exactly once,
// whether or not handling it succeeds.
func (t *Tracker) Take(userId int64) entity.Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	action, ok := t.pending[userId]
	if !ok {
		return entity.ActionNone
	}
	delete(t.pending, userId)
	return action
}

// Peek reports the pending action without consuming it.
func (t *Tracker) Peek(userId int64) entity.Action {
	t.mu.RLock()
	defer t.mu.RUnlock()
	action, ok := t.pending[userId]
	if !ok {
		return entity.ActionNone
	}
	return action
}

// Clear drops the pending action for a user.
func (t *Tracker) Clear(userId int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, userId)
}
