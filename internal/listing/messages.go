package listing

// Messages exchanged between a Controller and the Bubble Tea runtime.
// Every message carries the ListID of the controller it belongs to, so
// several controllers can share one program.

// DebounceFiredMsg is produced when a debounce timer expires.
type DebounceFiredMsg struct {
	ListID string
	Seq    uint64
}

// PageLoadedMsg carries the outcome of one ResourceAPI fetch.
type PageLoadedMsg struct {
	ListID string
	Token  Token
	Query  Query
	Page   Page
	Err    error
}

// ToggleResultMsg carries the outcome of one ToggleStatus call.
type ToggleResultMsg struct {
	ListID string
	ItemID string
	Active *bool // server-reported value, if any
	Err    error
}

// DeleteResultMsg carries the outcome of one DeleteItem call.
type DeleteResultMsg struct {
	ListID string
	ItemID string
	Err    error
}

// MutationSettledMsg tells the host screen a mutation finished.
// Err is nil on success, otherwise a *MutationError.
type MutationSettledMsg struct {
	ListID string
	ItemID string
	Kind   MutationKind
	Err    error
}
