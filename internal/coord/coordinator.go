// Package coord runs the background loops that keep the TUI current: a
// periodic refresh of the visible list and a periodic row count per
// collection.
package coord

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/estatedesk/internal/logging"
	"github.com/abelbrown/estatedesk/internal/store"
	"github.com/abelbrown/estatedesk/internal/ui"
)

// statsTimeout bounds each row-count query.
const statsTimeout = 10 * time.Second

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// StatsSource counts rows per collection. The sqlite and postgres stores
// and the REST client all implement it.
type StatsSource interface {
	Stats(ctx context.Context) ([]store.CollectionStats, error)
}

// Config holds the loop intervals. A zero interval disables that loop.
type Config struct {
	RefreshEvery time.Duration
	StatsEvery   time.Duration
}

// Coordinator owns the background goroutines.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	cfg   Config
	stats StatsSource // optional: nil disables the stats loop
	wg    sync.WaitGroup
}

// New creates a Coordinator. stats may be nil.
func New(cfg Config, stats StatsSource) *Coordinator {
	return &Coordinator{cfg: cfg, stats: stats}
}

// Start begins the background loops. Call with a cancellable context.
// Stats are loaded once immediately; refreshes wait for the first tick.
func (c *Coordinator) Start(ctx context.Context, program Sender) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		g, gctx := errgroup.WithContext(ctx)
		if c.cfg.RefreshEvery > 0 {
			g.Go(func() error {
				c.every(gctx, c.cfg.RefreshEvery, func() { program.Send(ui.RefreshTick{}) })
				return nil
			})
		}
		if c.stats != nil && c.cfg.StatsEvery > 0 {
			g.Go(func() error {
				c.loadStats(gctx, program)
				c.every(gctx, c.cfg.StatsEvery, func() { c.loadStats(gctx, program) })
				return nil
			})
		}
		_ = g.Wait() // loops only stop on cancellation
	}()
}

// Wait blocks until the background goroutines exit.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// every calls fn on each tick until ctx is done.
func (c *Coordinator) every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// loadStats counts rows with a timeout and sends ui.StatsLoaded.
func (c *Coordinator) loadStats(ctx context.Context, program Sender) {
	if ctx.Err() != nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	stats, err := c.stats.Stats(sctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Warn("Stats load failed", "error", err)
	}
	program.Send(ui.StatsLoaded{Stats: stats, Err: err})
}
