package listing

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/estatedesk/internal/otel"
)

const comp = "listing"

// Options tunes a Controller. The zero value is usable.
type Options struct {
	// SearchDelay is the quiet period for typed search text. Zero means
	// SearchDebounce; a negative value dispatches immediately.
	SearchDelay time.Duration

	// FilterDelay is the quiet period for selections. Defaults to immediate.
	FilterDelay time.Duration

	// Tick arms debounce timers. Defaults to tea.Tick.
	Tick TickFunc

	// Events receives fetch and mutation events. May be nil.
	Events *otel.Logger

	// Context is passed to every API call. Defaults to context.Background.
	Context context.Context
}

// Controller is the list state machine behind one screen.
//
// It is a Bubble Tea sub-model: actions and Update return commands the host
// model must hand back to the runtime, and Update only reacts to messages
// carrying this controller's ListID.
type Controller struct {
	id     string
	api    Collection
	opts   Options
	events *otel.Logger

	compiler *FilterCompiler
	debounce *Debouncer
	seq      Sequencer
	pager    Pagination
	mut      *Mutator
	del      *Deleter

	items      []Item
	status     Status
	errMsg     string
	lastErr    error
	current    *Query // last dispatched
	dispatched time.Time
	closed     bool
}

// New creates a controller for one collection.
func New(id string, api Collection, cfg CompilerConfig, opts Options) *Controller {
	if opts.SearchDelay == 0 {
		opts.SearchDelay = SearchDebounce
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	compiler := NewFilterCompiler(cfg)
	mut := NewMutator(id, api)
	return &Controller{
		id:       id,
		api:      api,
		opts:     opts,
		events:   opts.Events,
		compiler: compiler,
		debounce: NewDebouncer(id, opts.Tick),
		pager:    NewPagination(compiler.Config().PageSize),
		mut:      mut,
		del:      NewDeleter(mut),
	}
}

// ID returns the list identifier carried by this controller's messages.
func (c *Controller) ID() string { return c.id }

// Compiler exposes the filter state, e.g. to render current selections.
func (c *Controller) Compiler() *FilterCompiler { return c.compiler }

// Seed applies external parameters. Only the first call has any effect.
func (c *Controller) Seed(params map[string]string) bool {
	return c.compiler.Seed(params)
}

// Init dispatches the first fetch for the current (possibly seeded) inputs.
func (c *Controller) Init() tea.Cmd {
	if c.closed {
		return nil
	}
	return c.dispatch(c.compiler.Compile())
}

// SetSearchTerm records typed search text. The fetch is debounced.
func (c *Controller) SetSearchTerm(term string) tea.Cmd {
	if c.closed {
		return nil
	}
	c.compiler.SetTerm(term)
	c.pager.Reset()
	return c.schedule(c.compiler.Compile(), c.opts.SearchDelay)
}

// SetFilter changes one named selection; an empty value clears it.
// Unknown names are ignored and return nil.
func (c *Controller) SetFilter(name, value string) tea.Cmd {
	if c.closed || !c.compiler.SetSelection(name, value) {
		return nil
	}
	c.pager.Reset()
	return c.schedule(c.compiler.Compile(), c.opts.FilterDelay)
}

// GoToPage navigates to page n, clamped to the known page range.
// Navigating to the page already shown does nothing.
func (c *Controller) GoToPage(n int) tea.Cmd {
	if c.closed {
		return nil
	}
	n = c.pager.Clamp(n)
	if c.current != nil && n == c.current.Page() && !c.debounce.Pending() && c.status != StatusError {
		return nil
	}
	c.compiler.SetPage(n)
	c.debounce.Cancel()
	return c.dispatch(c.compiler.Compile())
}

// NextPage and PrevPage are GoToPage relative to the current page.
func (c *Controller) NextPage() tea.Cmd { return c.GoToPage(c.pager.Page() + 1) }
func (c *Controller) PrevPage() tea.Cmd { return c.GoToPage(c.pager.Page() - 1) }

// Refresh re-dispatches the current query. It does nothing while input is
// being debounced, since that dispatch is already coming.
func (c *Controller) Refresh() tea.Cmd {
	if c.closed || c.debounce.Pending() {
		return nil
	}
	if c.current == nil {
		return c.Init()
	}
	return c.dispatch(*c.current)
}

// Toggle flips item id's Active flag optimistically.
// It returns ErrMutationConflict when a mutation for id is already pending.
func (c *Controller) Toggle(id string) (tea.Cmd, error) {
	if c.closed {
		return nil, nil
	}
	cmd, err := c.mut.Toggle(c.opts.Context, c.items, id)
	if err != nil {
		c.mutationRejected(id, err)
		return nil, err
	}
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindToggleStart, Comp: comp, ListID: c.id, ItemID: id})
	return cmd, nil
}

// Delete removes item id once the server confirms. confirmed must be true.
func (c *Controller) Delete(id string, confirmed bool) (tea.Cmd, error) {
	if c.closed {
		return nil, nil
	}
	cmd, err := c.del.Request(c.opts.Context, c.items, id, confirmed)
	if err != nil {
		c.mutationRejected(id, err)
		return nil, err
	}
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDeleteStart, Comp: comp, ListID: c.id, ItemID: id})
	return cmd, nil
}

// Pending reports whether item id has a mutation in flight.
func (c *Controller) Pending(id string) bool {
	return c.mut.Pending(id)
}

// Err returns the error behind the current Error status, if any.
func (c *Controller) Err() error {
	if c.status != StatusError {
		return nil
	}
	return c.lastErr
}

// Close unmounts the controller. Armed timers and in-flight results are
// ignored from now on.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.debounce.Cancel()
	c.seq.Abandon()
	c.mut.Reset()
}

// Update consumes messages addressed to this controller.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	if c.closed {
		return nil
	}
	switch msg := msg.(type) {
	case DebounceFiredMsg:
		if msg.ListID != c.id {
			return nil
		}
		q, ok := c.debounce.Fire(msg)
		if !ok {
			return nil
		}
		return c.dispatch(q)

	case PageLoadedMsg:
		if msg.ListID != c.id {
			return nil
		}
		return c.pageLoaded(msg)

	case ToggleResultMsg:
		if msg.ListID != c.id {
			return nil
		}
		settled, err := c.mut.SettleToggle(c.items, msg)
		if !settled {
			return nil
		}
		if err != nil {
			c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindToggleRollback, Comp: comp, ListID: c.id, ItemID: msg.ItemID, Err: err.Error()})
		} else {
			c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindToggleCommit, Comp: comp, ListID: c.id, ItemID: msg.ItemID})
		}
		return c.settled(msg.ItemID, MutationToggle, err)

	case DeleteResultMsg:
		if msg.ListID != c.id {
			return nil
		}
		return c.deleteSettled(msg)
	}
	return nil
}

// Snapshot returns a copy of the render state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Items:        cloneItems(c.items),
		Page:         c.pager.Page(),
		PageSize:     c.pager.PageSize(),
		TotalPages:   c.pager.TotalPages(),
		TotalCount:   c.pager.TotalCount(),
		Status:       c.status,
		ErrorMessage: c.errMsg,
		Term:         c.compiler.Term(),
	}
	if c.current != nil {
		s.Query = *c.current
	}
	return s
}

func (c *Controller) schedule(q Query, delay time.Duration) tea.Cmd {
	c.errMsg = ""
	if delay <= 0 {
		c.debounce.Cancel()
		return c.dispatch(q)
	}
	c.status = StatusDebouncing
	c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindDebounceArm, Comp: comp, ListID: c.id, Query: q.String(), Dur: delay})
	return c.debounce.Schedule(q, delay)
}

func (c *Controller) dispatch(q Query) tea.Cmd {
	if c.current != nil && !q.SameFilters(*c.current) && q.Page() != 1 {
		q = q.WithPage(1)
		c.compiler.SetPage(1)
	}
	token := c.seq.Next()
	c.current = &q
	c.status = StatusFetching
	c.errMsg = ""
	c.dispatched = time.Now()
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchDispatch, Comp: comp, ListID: c.id, Token: uint64(token), Page: q.Page(), Query: q.String()})

	api, ctx, listID := c.api, c.opts.Context, c.id
	return func() tea.Msg {
		pg, err := api.FetchPage(ctx, q)
		return PageLoadedMsg{ListID: listID, Token: token, Query: q, Page: pg, Err: err}
	}
}

func (c *Controller) pageLoaded(msg PageLoadedMsg) tea.Cmd {
	if err := c.seq.Accept(msg.Token); err != nil {
		c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStale, Comp: comp, ListID: c.id, Token: uint64(msg.Token), Msg: err.Error()})
		return nil
	}
	dur := time.Since(c.dispatched)

	if msg.Err != nil {
		c.status = StatusError
		c.lastErr = &FetchError{Token: msg.Token, Err: msg.Err}
		c.errMsg = msg.Err.Error()
		c.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindFetchError, Comp: comp, ListID: c.id, Token: uint64(msg.Token), Dur: dur, Err: c.errMsg})
		return nil
	}

	c.items = cloneItems(msg.Page.Items)
	c.pager.Apply(msg.Query, msg.Page)
	c.status = StatusLoaded
	if c.debounce.Pending() {
		c.status = StatusDebouncing
	}
	c.errMsg = ""
	c.lastErr = nil
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchComplete, Comp: comp, ListID: c.id, Token: uint64(msg.Token), Page: c.pager.Page(), Count: len(c.items), Dur: dur})

	// The collection shrank under us and the requested page no longer exists.
	if len(c.items) == 0 && c.pager.TotalCount() > 0 && msg.Query.Page() > c.pager.TotalPages() {
		c.compiler.SetPage(c.pager.TotalPages())
		return c.dispatch(msg.Query.WithPage(c.pager.TotalPages()))
	}
	return nil
}

func (c *Controller) deleteSettled(msg DeleteResultMsg) tea.Cmd {
	out, settled := c.del.Settle(c.items, msg)
	if !settled {
		return nil
	}
	if out.Err != nil {
		c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindDeleteError, Comp: comp, ListID: c.id, ItemID: msg.ItemID, Err: out.Err.Error()})
		return c.settled(msg.ItemID, MutationDelete, out.Err)
	}

	c.items = out.Items
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDeleteCommit, Comp: comp, ListID: c.id, ItemID: msg.ItemID})
	done := c.settled(msg.ItemID, MutationDelete, nil)
	if !out.Evicted {
		return done
	}

	c.pager.Remove(1)
	if len(c.items) > 0 || c.pager.TotalCount() == 0 {
		return done
	}

	// The visible page emptied but the collection did not: show the
	// previous page, or re-read page 1.
	page := c.pager.Clamp(c.pager.Page() - 1)
	c.compiler.SetPage(page)
	q := c.compiler.Compile()
	if c.current != nil && !c.debounce.Pending() {
		q = c.current.WithPage(page)
	}
	return tea.Batch(done, c.dispatch(q))
}

func (c *Controller) settled(id string, kind MutationKind, err error) tea.Cmd {
	listID := c.id
	return func() tea.Msg {
		return MutationSettledMsg{ListID: listID, ItemID: id, Kind: kind, Err: err}
	}
}

func (c *Controller) mutationRejected(id string, err error) {
	if errors.Is(err, ErrMutationConflict) {
		c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindConflict, Comp: comp, ListID: c.id, ItemID: id, Err: err.Error()})
	}
}
