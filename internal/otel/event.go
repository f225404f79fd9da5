// Package otel records what the list controllers are doing.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional Journal keeps recent events and running counters per list for
// the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Fetch lifecycle
	KindDebounceArm   EventKind = "debounce.arm"
	KindFetchDispatch EventKind = "fetch.dispatch"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchStale    EventKind = "fetch.stale"
	KindFetchError    EventKind = "fetch.error"

	// Mutations
	KindToggleStart    EventKind = "toggle.start"
	KindToggleCommit   EventKind = "toggle.commit"
	KindToggleRollback EventKind = "toggle.rollback"
	KindDeleteStart    EventKind = "delete.start"
	KindDeleteCommit   EventKind = "delete.commit"
	KindDeleteError    EventKind = "delete.error"
	KindConflict       EventKind = "mutation.conflict"

	// Backends
	KindClientRetry EventKind = "client.retry"

	// UI
	KindKeyPress  EventKind = "ui.key"
	KindScreen    EventKind = "ui.screen"
	KindRefreshed EventKind = "ui.refresh"

	// Process lifecycle
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"

	// Tracing, only when ESTATEDESK_TRACE is set
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time     `json:"t"`
	Level     Level         `json:"level,omitempty"`
	Kind      EventKind     `json:"kind"`
	Comp      string        `json:"comp,omitempty"`       // "listing", "ui", "coord", "restapi"
	SessionID string        `json:"session_id,omitempty"` // random hex, same for entire app run
	ListID    string        `json:"list,omitempty"`       // controller the event belongs to
	Token     uint64        `json:"token,omitempty"`      // fetch token
	ItemID    string        `json:"item,omitempty"`
	Page      int           `json:"page,omitempty"`
	Dur       time.Duration `json:"-"`                // not serialized directly
	DurMs     float64       `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int           `json:"count,omitempty"`
	Query     string        `json:"query,omitempty"`
	Err       string        `json:"err,omitempty"`
	Msg       string        `json:"msg,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
