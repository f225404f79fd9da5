package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/otel"
	"github.com/abelbrown/estatedesk/internal/store"
)

const comp = "ui"

// AppOptions configures NewApp.
type AppOptions struct {
	Listing listing.Options   // shared by every tab's controller
	Journal *otel.Journal     // backs the debug overlay; nil disables it
	Start   string            // screen ID shown first
	Seed    map[string]string // deep-link params applied to the start screen
}

// tab is one screen and the controller behind it.
type tab struct {
	screen  Screen
	ctl     *listing.Controller
	cursor  int
	started bool
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold a store. It talks to collections only through
// its controllers, which report back via messages.
type App struct {
	tabs   []*tab
	active int

	search    textinput.Model
	searching bool
	confirmID string // item awaiting delete confirmation
	notice    string

	spinner   spinner.Model
	journal   *otel.Journal
	events    *otel.Logger
	showDebug bool
	counts    map[string]store.CollectionStats

	width  int
	height int
	ready  bool
}

// NewApp builds one controller per screen. Every screen needs a matching
// collection.
func NewApp(screens []Screen, collections map[string]listing.Collection, opts AppOptions) (App, error) {
	if len(screens) == 0 {
		return App{}, errors.New("no screens")
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "search"
	ti.CharLimit = 120

	s := spinner.New()
	s.Spinner = spinner.Dot

	a := App{
		search:  ti,
		spinner: s,
		journal: opts.Journal,
		events:  opts.Listing.Events,
	}
	for i, sc := range screens {
		coll, ok := collections[sc.ID]
		if !ok {
			return App{}, fmt.Errorf("no collection for screen %q", sc.ID)
		}
		a.tabs = append(a.tabs, &tab{
			screen: sc,
			ctl:    listing.New(sc.ID, coll, sc.Config, opts.Listing),
		})
		if sc.ID == opts.Start {
			a.active = i
		}
	}
	if len(opts.Seed) > 0 {
		a.current().ctl.Seed(opts.Seed)
	}
	return a, nil
}

// Init loads the start screen.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.startTab(a.current()), a.spinner.Tick)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.traceMsg(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case RefreshTick:
		t := a.current()
		if !t.started {
			return a, nil
		}
		a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindRefreshed, Comp: comp, ListID: t.screen.ID})
		return a, t.ctl.Refresh()

	case StatsLoaded:
		if msg.Err != nil {
			return a, nil // keep the last known counts
		}
		a.counts = make(map[string]store.CollectionStats, len(msg.Stats))
		for _, st := range msg.Stats {
			a.counts[st.Name] = st
		}
		return a, nil

	case listing.MutationSettledMsg:
		a.notice = settledNotice(msg)
		return a, nil
	}

	// Controller messages carry a ListID; each controller ignores the
	// ones addressed to another tab.
	var cmds []tea.Cmd
	for _, t := range a.tabs {
		cmds = append(cmds, t.ctl.Update(msg))
	}
	a.clampCursor()
	return a, tea.Batch(cmds...)
}

// traceMsg records every message except animation frames.
func (a App) traceMsg(msg tea.Msg) {
	if _, ok := msg.(spinner.TickMsg); ok {
		return
	}
	a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: comp, Msg: fmt.Sprintf("%T", msg)})
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: comp, Msg: msg.String()})

	if a.searching {
		return a.handleSearchKey(msg)
	}

	if a.confirmID != "" {
		id := a.confirmID
		a.confirmID = ""
		if !key.Matches(msg, keys.Confirm) {
			a.notice = "Delete cancelled"
			return a, nil
		}
		cmd, err := a.current().ctl.Delete(id, true)
		if err != nil {
			a.notice = err.Error()
		}
		return a, cmd
	}

	a.notice = ""
	t := a.current()
	snap := t.ctl.Snapshot()

	switch {
	case key.Matches(msg, keys.Quit):
		for _, t := range a.tabs {
			t.ctl.Close()
		}
		return a, tea.Quit

	case key.Matches(msg, keys.Debug):
		if a.journal != nil {
			a.showDebug = !a.showDebug
		}
		return a, nil

	case key.Matches(msg, keys.NextTab):
		return a.switchTab((a.active + 1) % len(a.tabs))

	case key.Matches(msg, keys.PrevTab):
		return a.switchTab((a.active - 1 + len(a.tabs)) % len(a.tabs))

	case key.Matches(msg, keys.Search):
		a.searching = true
		a.search.SetValue(snap.Term)
		a.search.CursorEnd()
		return a, a.search.Focus()

	case key.Matches(msg, keys.ClearSearch):
		if snap.Term == "" {
			return a, nil
		}
		a.search.SetValue("")
		return a, t.ctl.SetSearchTerm("")

	case key.Matches(msg, keys.Down):
		if t.cursor < len(snap.Items)-1 {
			t.cursor++
		}
		return a, nil

	case key.Matches(msg, keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
		return a, nil

	case key.Matches(msg, keys.Top):
		t.cursor = 0
		return a, nil

	case key.Matches(msg, keys.Bottom):
		if len(snap.Items) > 0 {
			t.cursor = len(snap.Items) - 1
		}
		return a, nil

	case key.Matches(msg, keys.NextPage):
		t.cursor = 0
		return a, t.ctl.NextPage()

	case key.Matches(msg, keys.PrevPage):
		t.cursor = 0
		return a, t.ctl.PrevPage()

	case key.Matches(msg, keys.Refresh):
		return a, t.ctl.Refresh()

	case key.Matches(msg, keys.Toggle):
		it, ok := selected(snap, t.cursor)
		if !ok {
			return a, nil
		}
		cmd, err := t.ctl.Toggle(it.ID)
		if err != nil {
			a.notice = err.Error()
		}
		return a, cmd

	case key.Matches(msg, keys.Delete):
		if it, ok := selected(snap, t.cursor); ok {
			a.confirmID = it.ID
		}
		return a, nil

	case key.Matches(msg, keys.Filter):
		idx := int(msg.Runes[0] - '1')
		if idx < 0 || idx >= len(t.screen.Filters) {
			return a, nil
		}
		f := t.screen.Filters[idx]
		t.cursor = 0
		return a, t.ctl.SetFilter(f.Name, f.nextOption(t.ctl.Compiler().Selection(f.Name)))
	}

	return a, nil
}

func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.EndSearch) {
		a.searching = false
		a.search.Blur()
		return a, nil
	}

	before := a.search.Value()
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if a.search.Value() == before {
		return a, cmd
	}
	t := a.current()
	t.cursor = 0
	return a, tea.Batch(cmd, t.ctl.SetSearchTerm(a.search.Value()))
}

func (a App) switchTab(i int) (tea.Model, tea.Cmd) {
	a.active = i
	a.confirmID = ""
	t := a.current()
	a.search.SetValue(t.ctl.Snapshot().Term)
	a.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindScreen, Comp: comp, ListID: t.screen.ID})
	return a, a.startTab(t)
}

// startTab loads a tab the first time it is shown.
func (a App) startTab(t *tab) tea.Cmd {
	if t.started {
		return nil
	}
	t.started = true
	return t.ctl.Init()
}

func (a App) current() *tab {
	return a.tabs[a.active]
}

func (a App) clampCursor() {
	for _, t := range a.tabs {
		n := len(t.ctl.Snapshot().Items)
		if t.cursor >= n {
			t.cursor = max(n-1, 0)
		}
	}
}

func selected(snap listing.Snapshot, cursor int) (listing.Item, bool) {
	if cursor < 0 || cursor >= len(snap.Items) {
		return listing.Item{}, false
	}
	return snap.Items[cursor], true
}

func settledNotice(msg listing.MutationSettledMsg) string {
	if msg.Err != nil {
		return msg.Err.Error()
	}
	if msg.Kind == listing.MutationDelete {
		return "Deleted " + msg.ItemID
	}
	return ""
}

// Active returns the ID of the visible screen (for testing).
func (a App) Active() string {
	return a.current().screen.ID
}

// Cursor returns the cursor of the visible screen (for testing).
func (a App) Cursor() int {
	return a.current().cursor
}

// Snapshot returns the visible screen's controller state (for testing).
func (a App) Snapshot() listing.Snapshot {
	return a.current().ctl.Snapshot()
}

// Notice returns the transient message line (for testing).
func (a App) Notice() string {
	return a.notice
}

type keyMap struct {
	Quit        key.Binding
	Debug       key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Search      key.Binding
	EndSearch   key.Binding
	ClearSearch key.Binding
	Down        key.Binding
	Up          key.Binding
	Top         key.Binding
	Bottom      key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Refresh     key.Binding
	Toggle      key.Binding
	Delete      key.Binding
	Confirm     key.Binding
	Filter      key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Debug:       key.NewBinding(key.WithKeys("D")),
	NextTab:     key.NewBinding(key.WithKeys("tab")),
	PrevTab:     key.NewBinding(key.WithKeys("shift+tab")),
	Search:      key.NewBinding(key.WithKeys("/")),
	EndSearch:   key.NewBinding(key.WithKeys("enter", "esc")),
	ClearSearch: key.NewBinding(key.WithKeys("esc")),
	Down:        key.NewBinding(key.WithKeys("j", "down")),
	Up:          key.NewBinding(key.WithKeys("k", "up")),
	Top:         key.NewBinding(key.WithKeys("g", "home")),
	Bottom:      key.NewBinding(key.WithKeys("G", "end")),
	NextPage:    key.NewBinding(key.WithKeys("n", "right", "pgdown")),
	PrevPage:    key.NewBinding(key.WithKeys("p", "left", "pgup")),
	Refresh:     key.NewBinding(key.WithKeys("r")),
	Toggle:      key.NewBinding(key.WithKeys("t", " ")),
	Delete:      key.NewBinding(key.WithKeys("d")),
	Confirm:     key.NewBinding(key.WithKeys("y", "Y")),
	Filter:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9")),
}
