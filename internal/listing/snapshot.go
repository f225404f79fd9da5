package listing

// Status is the screen-level state of a Controller.
type Status int

const (
	StatusIdle Status = iota
	StatusDebouncing
	StatusFetching
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusDebouncing:
		return "debouncing"
	case StatusFetching:
		return "fetching"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the render-ready view of a Controller.
// It is a copy; mutating it has no effect on the controller.
type Snapshot struct {
	Items        []Item
	Page         int
	PageSize     int
	TotalPages   int
	TotalCount   int
	Status       Status
	ErrorMessage string

	// Query is the most recently dispatched query, Term the raw search text.
	Query Query
	Term  string
}

// Loading reports whether a result is on its way.
func (s Snapshot) Loading() bool {
	return s.Status == StatusDebouncing || s.Status == StatusFetching
}

// Empty reports a loaded list with no items.
func (s Snapshot) Empty() bool {
	return s.Status == StatusLoaded && len(s.Items) == 0
}

// Range returns the 1-based positions of the first and last visible items
// within the whole result, or 0, 0 when nothing is visible.
func (s Snapshot) Range() (first, last int) {
	if len(s.Items) == 0 {
		return 0, 0
	}
	first = (s.Page-1)*s.PageSize + 1
	return first, first + len(s.Items) - 1
}
