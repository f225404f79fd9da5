package listing

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Default quiet periods.
const (
	SearchDebounce = 300 * time.Millisecond
	FilterDebounce = 0
	PageDebounce   = 0
)

// TickFunc arms a timer and produces a message when it fires.
// tea.Tick satisfies it; tests substitute a fake.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Debouncer coalesces rapid query changes into one dispatch.
//
// Bubble Tea has no way to cancel a tea.Tick once issued, so every Schedule
// tags its tick with a new sequence number. A tick whose tag is no longer
// the latest is ignored when it arrives, which is equivalent to cancelling it.
type Debouncer struct {
	listID  string
	tick    TickFunc
	seq     uint64
	pending *Query
}

// NewDebouncer creates a debouncer whose ticks are addressed to listID.
// A nil tick uses tea.Tick.
func NewDebouncer(listID string, tick TickFunc) *Debouncer {
	if tick == nil {
		tick = tea.Tick
	}
	return &Debouncer{listID: listID, tick: tick}
}

// Schedule supersedes any armed timer and arms a new one for q.
func (d *Debouncer) Schedule(q Query, delay time.Duration) tea.Cmd {
	d.seq++
	d.pending = &q
	seq := d.seq
	listID := d.listID
	return d.tick(delay, func(time.Time) tea.Msg {
		return DebounceFiredMsg{ListID: listID, Seq: seq}
	})
}

// Fire returns the pending query if msg belongs to the latest Schedule.
func (d *Debouncer) Fire(msg DebounceFiredMsg) (Query, bool) {
	if msg.Seq != d.seq || d.pending == nil {
		return Query{}, false
	}
	q := *d.pending
	d.pending = nil
	return q, true
}

// Cancel disarms the pending timer, if any.
func (d *Debouncer) Cancel() {
	d.seq++
	d.pending = nil
}

// Pending reports whether a timer is armed.
func (d *Debouncer) Pending() bool {
	return d.pending != nil
}
