package listing

import (
	"errors"
	"fmt"
)

var (
	// ErrMutationConflict is returned when a toggle or delete is requested
	// for an item that already has one outstanding. No network call is made.
	ErrMutationConflict = errors.New("mutation already in progress")

	// ErrStaleResponse marks a response from a superseded fetch.
	// It is only ever logged, never shown to the user.
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrItemNotFound is returned when a mutation names an item that is not
	// in the visible list.
	ErrItemNotFound = errors.New("item not in current list")

	// ErrNotConfirmed is returned by Delete when the caller did not confirm.
	ErrNotConfirmed = errors.New("deletion not confirmed")
)

// FetchError is a failed page fetch whose token was still current.
type FetchError struct {
	Token Token
	Err   error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationKind distinguishes the two item mutations.
type MutationKind int

const (
	MutationToggle MutationKind = iota
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationToggle:
		return "toggle"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// MutationError is a toggle or delete the server rejected.
type MutationError struct {
	ItemID string
	Kind   MutationKind
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ItemID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
