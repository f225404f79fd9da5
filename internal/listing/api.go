// Package listing implements the list controller shared by every "manage a
// collection" screen: a debounced search box, server-side pagination and
// optimistic status mutations, all reconciled against the most recent page
// returned by the server.
//
// # Architecture
//
//	keystrokes ──┐
//	page clicks ─┼─> Controller ──> Snapshot (render-ready)
//	toggles ─────┘       │
//	                     ├─ FilterCompiler   raw inputs -> Query
//	                     ├─ Debouncer        coalesce text input
//	                     ├─ Sequencer        token per fetch, drop stale
//	                     ├─ Pagination       page bounds, reset on filter change
//	                     ├─ Mutator          optimistic toggle + rollback
//	                     └─ Deleter          confirm -> delete -> evict
//
// # Concurrency
//
// A Controller is a Bubble Tea sub-model. All of its state is touched only
// from the Update goroutine. Network calls run inside tea.Cmd closures and
// report back through messages tagged with the controller's ListID, so a
// response can never race with a keystroke.
package listing

import "context"

// Item is one row of a listed collection (property, blog post, user).
type Item struct {
	ID         string
	Title      string
	Subtitle   string
	Active     bool
	Attributes map[string]string
}

// Page is one page of results returned by a ResourceAPI.
type Page struct {
	Items      []Item
	Page       int
	TotalPages int
	TotalCount int
}

// ResourceAPI reads pages of a collection.
// Implementations fail with an error whose message is shown to the user.
type ResourceAPI interface {
	FetchPage(ctx context.Context, q Query) (Page, error)
}

// MutationAPI changes individual items of a collection.
//
// ToggleStatus flips the item's active flag. It returns the new value when
// the backend reports one, or nil when it does not.
type MutationAPI interface {
	ToggleStatus(ctx context.Context, id string) (*bool, error)
	DeleteItem(ctx context.Context, id string) error
}

// Collection is a backend that serves both APIs for one collection.
type Collection interface {
	ResourceAPI
	MutationAPI
}

// cloneItems copies items so callers can't alias controller state.
func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		if it.Attributes != nil {
			attrs := make(map[string]string, len(it.Attributes))
			for k, v := range it.Attributes {
				attrs[k] = v
			}
			out[i].Attributes = attrs
		}
	}
	return out
}
