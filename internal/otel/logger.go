package otel

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize is the capacity of the write queue. Controllers emit a few
// events per keystroke, so this absorbs long bursts.
const queueSize = 2048

// Logger appends events to a JSONL writer from a background goroutine and
// mirrors them into an optional Journal.
//
// Emit never blocks the Bubble Tea update loop: when the queue is full the
// event is counted as dropped. A nil *Logger accepts and discards events.
type Logger struct {
	session string
	queue   chan Event
	out     *bufio.Writer
	journal atomic.Pointer[Journal]
	dropped atomic.Uint64

	mu     sync.RWMutex // guards closed against sends on a closed queue
	closed bool
	done   chan struct{}
}

// NewLogger starts a Logger writing to w. Close flushes and stops it.
func NewLogger(w io.Writer) *Logger {
	var id [8]byte
	_, _ = rand.Read(id[:])

	l := &Logger{
		session: hex.EncodeToString(id[:]),
		queue:   make(chan Event, queueSize),
		out:     bufio.NewWriter(w),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger returns a Logger that keeps nothing on disk. A journal
// attached to it still fills.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// Session returns the random ID stamped on every event of this run.
func (l *Logger) Session() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Attach mirrors every later event into j. Passing nil detaches.
func (l *Logger) Attach(j *Journal) {
	if l == nil {
		return
	}
	l.journal.Store(j)
}

// Emit queues e. Time defaults to now; the session ID is always set.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
	}
}

// run writes queued events, flushing whenever the queue drains.
func (l *Logger) run() {
	defer close(l.done)
	enc := json.NewEncoder(l.out)
	for e := range l.queue {
		if err := enc.Encode(e); err != nil {
			l.dropped.Add(1)
		}
		if j := l.journal.Load(); j != nil {
			j.Record(e)
		}
		if len(l.queue) == 0 {
			if err := l.out.Flush(); err != nil {
				l.dropped.Add(1)
			}
		}
	}
	_ = l.out.Flush()
}

// Dropped returns how many events were lost to a full queue, a write
// error or a send after Close.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close writes every queued event and stops the writer. Later Emits are
// dropped. Safe to call more than once.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()
	<-l.done

	if d := l.dropped.Load(); d > 0 {
		fmt.Fprintf(os.Stderr, "estatedesk: %d events dropped during session %s\n", d, l.session)
	}
}
