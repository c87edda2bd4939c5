package client

import (
	"sync"

	"ChatDraw/internal/state"
)

// Board is the client's local copy of the shared drawing.
type Board struct {
	mu      sync.RWMutex
	actions []state.Action
}

// Reset replaces the board with a replayed history.
func (b *Board) Reset(actions []state.Action) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = b.actions[:0]
	for _, a := range actions {
		b.actions = append(b.actions, a.Clone())
	}
}

func (b *Board) Add(a state.Action) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = append(b.actions, a.Clone())
}

func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = nil
}

// Actions returns a copy of the board's actions, oldest first.
func (b *Board) Actions() []state.Action {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]state.Action, len(b.actions))
	for i, a := range b.actions {
		out[i] = a.Clone()
	}
	return out
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.actions)
}
