package otel

import (
	"sync"
	"time"
)

// DefaultJournalDepth is how many recent events a Journal keeps per list.
const DefaultJournalDepth = 128

// ListCounts is the running tally for one list. Counters only grow; they
// are not limited by the journal depth.
type ListCounts struct {
	Dispatched int
	Completed  int
	Stale      int
	Failed     int

	Toggles    int
	Committed  int
	RolledBack int

	Deletes       int
	Deleted       int
	DeleteFailed  int
	Conflicts     int
	CurrentToken  uint64        // token of the newest dispatch
	LastFetchTook time.Duration // duration of the newest completed fetch
}

// listLog is the per-list circular buffer plus its counters.
type listLog struct {
	events []Event
	next   int
	full   bool
	counts ListCounts
}

// Journal keeps the recent events of every list separately so a busy list
// can't push a quiet one out of view. Events without a ListID (client
// retries, key presses) go into a shared bucket keyed by "".
// Goroutine-safe.
type Journal struct {
	mu      sync.Mutex
	depth   int
	lists   map[string]*listLog
	retries int
}

// NewJournal creates a journal keeping depth events per list.
func NewJournal(depth int) *Journal {
	if depth <= 0 {
		depth = DefaultJournalDepth
	}
	return &Journal{depth: depth, lists: make(map[string]*listLog)}
}

// Record files e under its list and updates the list's counters.
func (j *Journal) Record(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	l := j.lists[e.ListID]
	if l == nil {
		l = &listLog{events: make([]Event, j.depth)}
		j.lists[e.ListID] = l
	}
	l.events[l.next] = e
	l.next = (l.next + 1) % j.depth
	if l.next == 0 {
		l.full = true
	}

	c := &l.counts
	switch e.Kind {
	case KindFetchDispatch:
		c.Dispatched++
		if e.Token > c.CurrentToken {
			c.CurrentToken = e.Token
		}
	case KindFetchComplete:
		c.Completed++
		c.LastFetchTook = e.Dur
	case KindFetchStale:
		c.Stale++
	case KindFetchError:
		c.Failed++
	case KindToggleStart:
		c.Toggles++
	case KindToggleCommit:
		c.Committed++
	case KindToggleRollback:
		c.RolledBack++
	case KindDeleteStart:
		c.Deletes++
	case KindDeleteCommit:
		c.Deleted++
	case KindDeleteError:
		c.DeleteFailed++
	case KindConflict:
		c.Conflicts++
	case KindClientRetry:
		j.retries++
	}
}

// Recent returns up to n of listID's newest events, oldest first.
func (j *Journal) Recent(listID string, n int) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	l := j.lists[listID]
	if l == nil || n <= 0 {
		return nil
	}
	held := l.next
	if l.full {
		held = j.depth
	}
	n = min(n, held)

	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = l.events[(l.next-n+i+j.depth)%j.depth]
	}
	return out
}

// Counts returns listID's counters. Unknown lists report zeros.
func (j *Journal) Counts(listID string) ListCounts {
	j.mu.Lock()
	defer j.mu.Unlock()
	if l := j.lists[listID]; l != nil {
		return l.counts
	}
	return ListCounts{}
}

// Retries returns how many HTTP retries the REST client has made.
func (j *Journal) Retries() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.retries
}
