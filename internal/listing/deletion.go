package listing

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Deleter runs confirm -> delete -> evict. Unlike a toggle nothing is
// removed locally until the server has confirmed the deletion.
type Deleter struct {
	mut *Mutator
}

// NewDeleter creates a deleter sharing mut's pending set and MutationAPI.
func NewDeleter(mut *Mutator) *Deleter {
	return &Deleter{mut: mut}
}

// DeleteOutcome is what a settled deletion did to the visible list.
type DeleteOutcome struct {
	Items   []Item // list after eviction
	Evicted bool   // item was visible and has been removed
	Err     error  // *MutationError on failure
}

// Request starts deleting id. confirmed is the caller's confirmation gate.
func (d *Deleter) Request(ctx context.Context, items []Item, id string, confirmed bool) (tea.Cmd, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}
	i := indexOf(items, id)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	if err := d.mut.Begin(PendingMutation{ItemID: id, Kind: MutationDelete, Prior: items[i].Active}); err != nil {
		return nil, err
	}

	api, listID := d.mut.api, d.mut.listID
	return func() tea.Msg {
		err := api.DeleteItem(ctx, id)
		return DeleteResultMsg{ListID: listID, ItemID: id, Err: err}
	}, nil
}

// Settle applies a delete result to items. The returned bool is false for
// a result nobody is waiting for.
func (d *Deleter) Settle(items []Item, msg DeleteResultMsg) (DeleteOutcome, bool) {
	p, ok := d.mut.pending[msg.ItemID]
	if !ok || p.Kind != MutationDelete {
		return DeleteOutcome{Items: items}, false
	}
	d.mut.Resolve(msg.ItemID)

	if msg.Err != nil {
		return DeleteOutcome{
			Items: items,
			Err:   &MutationError{ItemID: msg.ItemID, Kind: MutationDelete, Err: msg.Err},
		}, true
	}

	i := indexOf(items, msg.ItemID)
	if i < 0 {
		return DeleteOutcome{Items: items}, true
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	return DeleteOutcome{Items: out, Evicted: true}, true
}
