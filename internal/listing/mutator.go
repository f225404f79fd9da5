package listing

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// PendingMutation exists between an optimistic local change and the
// server's answer. Prior is the Active value to restore on rollback.
type PendingMutation struct {
	ItemID string
	Kind   MutationKind
	Prior  bool
}

// Mutator tracks outstanding mutations, at most one per item.
// Both the optimistic toggle and the deletion coordinator go through it so
// a toggle and a delete on the same item also conflict.
type Mutator struct {
	listID  string
	api     MutationAPI
	pending map[string]PendingMutation
}

// NewMutator creates a mutator whose results are addressed to listID.
func NewMutator(listID string, api MutationAPI) *Mutator {
	return &Mutator{listID: listID, api: api, pending: make(map[string]PendingMutation)}
}

// Begin records a pending mutation, or returns ErrMutationConflict.
func (m *Mutator) Begin(p PendingMutation) error {
	if _, busy := m.pending[p.ItemID]; busy {
		return ErrMutationConflict
	}
	m.pending[p.ItemID] = p
	return nil
}

// Resolve removes and returns the pending mutation for id.
func (m *Mutator) Resolve(id string) (PendingMutation, bool) {
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	return p, ok
}

// Pending reports whether id has an outstanding mutation.
func (m *Mutator) Pending(id string) bool {
	_, ok := m.pending[id]
	return ok
}

// Len returns the number of outstanding mutations.
func (m *Mutator) Len() int {
	return len(m.pending)
}

// Reset forgets every pending mutation. Results still in flight are then
// ignored when they arrive.
func (m *Mutator) Reset() {
	m.pending = make(map[string]PendingMutation)
}

// Toggle flips the Active flag of item id in items right away and returns
// the command that asks the server to do the same.
func (m *Mutator) Toggle(ctx context.Context, items []Item, id string) (tea.Cmd, error) {
	i := indexOf(items, id)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	if err := m.Begin(PendingMutation{ItemID: id, Kind: MutationToggle, Prior: items[i].Active}); err != nil {
		return nil, err
	}
	items[i].Active = !items[i].Active

	api, listID := m.api, m.listID
	return func() tea.Msg {
		active, err := api.ToggleStatus(ctx, id)
		return ToggleResultMsg{ListID: listID, ItemID: id, Active: active, Err: err}
	}, nil
}

// SettleToggle reconciles a toggle result with items, which may since have
// been replaced by a newer page. On failure the prior value is restored; on
// success the server's value wins when it sent one. settled is false for a
// result nobody is waiting for.
func (m *Mutator) SettleToggle(items []Item, msg ToggleResultMsg) (settled bool, err error) {
	p, ok := m.pending[msg.ItemID]
	if !ok || p.Kind != MutationToggle {
		return false, nil
	}
	m.Resolve(msg.ItemID)

	i := indexOf(items, msg.ItemID)
	if msg.Err != nil {
		if i >= 0 {
			items[i].Active = p.Prior
		}
		return true, &MutationError{ItemID: msg.ItemID, Kind: MutationToggle, Err: msg.Err}
	}
	if i >= 0 && msg.Active != nil {
		items[i].Active = *msg.Active
	}
	return true, nil
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
