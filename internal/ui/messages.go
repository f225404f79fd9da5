// Package ui provides the Bubble Tea TUI for estatedesk: one tab per
// collection, each backed by its own listing.Controller.
package ui

import "github.com/abelbrown/estatedesk/internal/store"

// RefreshTick triggers a refresh of the visible tab. The coordinator sends
// it on a timer; the r key has the same effect.
type RefreshTick struct{}

// StatsLoaded carries per-collection row counts for the tab bar.
type StatsLoaded struct {
	Stats []store.CollectionStats
	Err   error
}
