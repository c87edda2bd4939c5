package session

import (
	"slices"
	"sync"

	"ChatDraw/internal/state"

	"github.com/google/uuid"
)

// Registry holds the connected members and the drawing history of the session.
// One mutex guards both so that a snapshot and the membership it is paired with
// are always taken at the same instant.
type Registry struct {
	mu      sync.Mutex
	order   []*Handle
	members map[uuid.UUID]*Handle
	history []state.Action
}

// Stats is a point-in-time size of the registry.
type Stats struct {
	Members int
	History int
}

// Recipient is a member together with the write slot reserved for one broadcast.
// Slots are reserved under the registry mutex, so every member receives
// broadcasts in the order they passed through the registry.
type Recipient struct {
	Handle *Handle
	slot   uint64
}

func NewRegistry() *Registry {
	return &Registry{
		members: make(map[uuid.UUID]*Handle),
	}
}

// Join adds h. The handle's name must already be bound. Joining twice is a no-op.
func (r *Registry) Join(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(h)
}

// JoinAndSnapshot adds h and returns the history as of that same instant.
func (r *Registry) JoinAndSnapshot(h *Handle) []state.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(h)
	return r.snapshotLocked()
}

func (r *Registry) joinLocked(h *Handle) {
	if _, ok := r.members[h.ID()]; ok {
		return
	}
	r.members[h.ID()] = h
	r.order = append(r.order, h)
}

// Leave removes h and reports whether it was a member.
func (r *Registry) Leave(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[h.ID()]; !ok {
		return false
	}
	delete(r.members, h.ID())
	r.order = slices.DeleteFunc(r.order, func(m *Handle) bool { return m == h })
	return true
}

// Members returns the current members in join order.
func (r *Registry) Members() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Snapshot returns a copy of the history, oldest first.
func (r *Registry) Snapshot() []state.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []state.Action {
	out := make([]state.Action, len(r.history))
	for i, a := range r.history {
		out[i] = a.Clone()
	}
	return out
}

// Append records a at the end of the history.
func (r *Registry) Append(a state.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, a.Clone())
}

// AppendAndMembers records a and returns the members that must be told about it.
// A handle joining concurrently sees a either in its snapshot or in this list,
// never both. The caller must serve every returned slot.
func (r *Registry) AppendAndMembers(a state.Action) []Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, a.Clone())
	return r.reserveLocked()
}

// Clear empties the history.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// ClearAndMembers empties the history and returns the members to notify.
// The caller must serve every returned slot.
func (r *Registry) ClearAndMembers() []Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	return r.reserveLocked()
}

// recipients reserves a slot on every member without touching the history.
func (r *Registry) recipients() []Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserveLocked()
}

func (r *Registry) reserveLocked() []Recipient {
	out := make([]Recipient, len(r.order))
	for i, h := range r.order {
		out[i] = Recipient{Handle: h, slot: h.reserve()}
	}
	return out
}

// Stats reports the current member count and history length.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Members: len(r.order), History: len(r.history)}
}
