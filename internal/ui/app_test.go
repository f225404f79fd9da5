package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/otel"
	"github.com/abelbrown/estatedesk/internal/store"
)

// immediateTick fires debounce timers at once so tests don't sleep.
func immediateTick(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg { return fn(time.Now()) }
}

func openFixture(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ds store.Dataset
	for i := 1; i <= 12; i++ {
		city := "Mumbai"
		if i%2 == 0 {
			city = "Pune"
		}
		ds.Properties = append(ds.Properties, store.Property{
			ID:       fmt.Sprintf("p%02d", i),
			Title:    fmt.Sprintf("Flat %02d", i),
			City:     city,
			Type:     "apartment",
			Listing:  "sale",
			Bedrooms: 1 + i%3,
			Price:    int64(i) * 500_000,
			Active:   true,
			Created:  now.Add(-time.Duration(i) * time.Hour),
		})
	}
	ds.Posts = []store.Post{{ID: "b1", Title: "Stamp duty explained", Category: "legal", Active: true, Created: now}}
	ds.Users = []store.User{
		{ID: "u1", Name: "Meera", Email: "meera@example.com", Role: "admin", Active: true, Created: now},
		{ID: "u2", Name: "Kabir", Email: "kabir@example.com", Role: "agent", Active: false, Created: now.Add(-time.Hour)},
	}
	if _, err := st.Insert(context.Background(), ds); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return st
}

func newTestApp(t *testing.T, opts AppOptions) (App, *store.Store) {
	t.Helper()
	st := openFixture(t)
	opts.Listing.Tick = immediateTick
	app, err := NewApp(DefaultScreens(5), st.Collections(), opts)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App), st
}

// drive runs cmd and feeds every resulting message back into the model
// until nothing is left. Commands that block (cursor blink, spinner frames)
// are dropped.
func drive(t *testing.T, m tea.Model, cmd tea.Cmd) App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("drive: too many steps")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runWithTimeout(c, 250*time.Millisecond)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case nil, spinner.TickMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		}
		var next tea.Cmd
		m, next = m.Update(msg)
		queue = append(queue, next)
	}
	return m.(App)
}

func runWithTimeout(c tea.Cmd, d time.Duration) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(d):
		return nil, false
	}
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, cmd := a.Update(msg)
		a = drive(t, m, cmd)
	}
	return a
}

func ids(items []listing.Item) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return strings.Join(out, ",")
}

func TestAppInitLoadsStartScreenOnly(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{Start: store.Users})
	app = drive(t, app, app.Init())

	if app.Active() != store.Users {
		t.Fatalf("active = %s, want users", app.Active())
	}
	snap := app.Snapshot()
	if snap.Status != listing.StatusLoaded || snap.TotalCount != 2 {
		t.Errorf("users snapshot = %+v", snap)
	}
	if st := app.tabs[0].ctl.Snapshot().Status; st != listing.StatusIdle {
		t.Errorf("properties status = %v, want idle until shown", st)
	}
}

func TestNewAppMissingCollection(t *testing.T) {
	_, err := NewApp(DefaultScreens(5), map[string]listing.Collection{}, AppOptions{})
	if err == nil {
		t.Error("expected error for missing collection")
	}
}

func TestSeedAppliesToStartScreen(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{Seed: map[string]string{"city": "Pune", "page": "2"}})
	app = drive(t, app, app.Init())

	snap := app.Snapshot()
	if snap.TotalCount != 6 || snap.Page != 2 {
		t.Errorf("seeded snapshot: total %d page %d", snap.TotalCount, snap.Page)
	}
	if ids(snap.Items) != "p12" {
		t.Errorf("items = %s, want p12", ids(snap.Items))
	}
}

func TestNavigationAndPaging(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	if got := ids(app.Snapshot().Items); got != "p01,p02,p03,p04,p05" {
		t.Fatalf("page 1 = %s", got)
	}

	app = press(t, app, "j", "j")
	if app.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", app.Cursor())
	}
	app = press(t, app, "G")
	if app.Cursor() != 4 {
		t.Errorf("G cursor = %d, want 4", app.Cursor())
	}

	app = press(t, app, "n")
	snap := app.Snapshot()
	if snap.Page != 2 || ids(snap.Items) != "p06,p07,p08,p09,p10" || app.Cursor() != 0 {
		t.Errorf("after n: page %d items %s cursor %d", snap.Page, ids(snap.Items), app.Cursor())
	}

	app = press(t, app, "n", "n") // third page, then clamped
	snap = app.Snapshot()
	if snap.Page != 3 || ids(snap.Items) != "p11,p12" {
		t.Errorf("last page: page %d items %s", snap.Page, ids(snap.Items))
	}

	app = press(t, app, "p")
	if app.Snapshot().Page != 2 {
		t.Errorf("after p: page %d", app.Snapshot().Page)
	}
}

func TestSearchTyping(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())
	app = press(t, app, "n")

	app = press(t, app, "/", "F", "l", "a", "t", " ", "1", "enter")
	snap := app.Snapshot()
	if snap.Term != "Flat 1" {
		t.Fatalf("term = %q", snap.Term)
	}
	if snap.Page != 1 {
		t.Errorf("search should reset to page 1, got %d", snap.Page)
	}
	if got := ids(snap.Items); got != "p10,p11,p12" {
		t.Errorf("items = %s", got)
	}
	if app.searching {
		t.Error("enter should leave search mode")
	}

	// esc outside search mode clears the term.
	app = press(t, app, "esc")
	if snap := app.Snapshot(); snap.Term != "" || snap.TotalCount != 12 {
		t.Errorf("after clear: term %q total %d", snap.Term, snap.TotalCount)
	}
}

func TestFilterKeysCycleOptions(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	app = press(t, app, "1") // city: Mumbai
	if snap := app.Snapshot(); snap.TotalCount != 6 {
		t.Errorf("Mumbai total = %d, want 6", snap.TotalCount)
	}
	app = press(t, app, "1") // city: Pune
	if got := app.tabs[0].ctl.Compiler().Selection("city"); got != "Pune" {
		t.Errorf("city = %q", got)
	}

	app = press(t, app, "5") // budget: Under ₹10L -> price 0..1,000,000
	snap := app.Snapshot()
	if ids(snap.Items) != "p02" {
		t.Errorf("Pune under 10L = %s, want p02", ids(snap.Items))
	}
	if _, ok := snap.Query.Field("price"); !ok {
		t.Error("budget label should compile to a price range")
	}

	app = press(t, app, "9") // no such filter
	if app.Snapshot().TotalCount != 1 {
		t.Error("unknown filter key changed the result")
	}
}

func TestToggleSelectedItem(t *testing.T) {
	app, st := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	app = press(t, app, "j", "t")
	if it := app.Snapshot().Items[1]; it.ID != "p02" || it.Active {
		t.Errorf("p02 after toggle = %+v", it)
	}
	if app.Notice() != "" {
		t.Errorf("notice = %q", app.Notice())
	}

	coll, _ := st.Collection(store.Properties)
	pg, _ := coll.FetchPage(context.Background(), listing.NewQuery("", nil, 1, 5))
	if pg.Items[1].Active {
		t.Error("toggle not persisted")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	app = press(t, app, "d")
	if app.confirmID != "p01" {
		t.Fatalf("confirmID = %q", app.confirmID)
	}
	if !strings.Contains(app.View(), "Flat 01") {
		t.Error("confirm prompt should name the item")
	}

	app = press(t, app, "n")
	if app.Notice() != "Delete cancelled" || app.Snapshot().TotalCount != 12 {
		t.Errorf("cancel: notice %q total %d", app.Notice(), app.Snapshot().TotalCount)
	}

	app = press(t, app, "d", "y")
	snap := app.Snapshot()
	if snap.TotalCount != 11 || strings.Contains(ids(snap.Items), "p01") {
		t.Errorf("after delete: total %d items %s", snap.TotalCount, ids(snap.Items))
	}
	if app.Notice() != "Deleted p01" {
		t.Errorf("notice = %q", app.Notice())
	}
}

func TestTabSwitchStartsLazily(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	app = press(t, app, "tab")
	if app.Active() != store.Posts || app.Snapshot().TotalCount != 1 {
		t.Errorf("posts tab: active %s total %d", app.Active(), app.Snapshot().TotalCount)
	}

	app = press(t, app, "shift+tab", "shift+tab")
	if app.Active() != store.Users {
		t.Errorf("shift+tab wrap = %s, want users", app.Active())
	}

	app = press(t, app, "tab")
	if app.Active() != store.Properties || app.Snapshot().Page != 1 {
		t.Errorf("back to properties: %s page %d", app.Active(), app.Snapshot().Page)
	}
}

func TestRefreshTickRereadsActiveTab(t *testing.T) {
	app, st := newTestApp(t, AppOptions{Start: store.Users})
	app = drive(t, app, app.Init())

	st.Insert(context.Background(), store.Dataset{Users: []store.User{
		{ID: "u3", Name: "Tara", Email: "tara@example.com", Role: "user", Active: true, Created: time.Now()},
	}})

	m, cmd := app.Update(RefreshTick{})
	app = drive(t, m, cmd)
	if app.Snapshot().TotalCount != 3 {
		t.Errorf("after refresh total = %d, want 3", app.Snapshot().TotalCount)
	}
}

func TestViewRendersScreen(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	view := app.View()
	for _, want := range []string{"Properties", "Blog", "Users", "Flat 01", "1–5 of 12", "page 1/3", "City=any"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDebugOverlayToggle(t *testing.T) {
	journal := otel.NewJournal(64)
	events := otel.NewNullLogger()
	events.Attach(journal)
	defer events.Close()

	app, _ := newTestApp(t, AppOptions{Journal: journal, Listing: listing.Options{Events: events}})
	app = drive(t, app, app.Init())

	app = press(t, app, "D")
	if !app.showDebug {
		t.Fatal("D should open the debug overlay")
	}
	if !strings.Contains(app.View(), "Recent Events") {
		t.Error("overlay not rendered")
	}
	app = press(t, app, "D")
	if app.showDebug {
		t.Error("D should close the overlay")
	}
}

func TestNextOption(t *testing.T) {
	f := FilterChoice{Name: "role", Options: []string{"admin", "agent"}}
	seq := []string{""}
	for i := 0; i < 3; i++ {
		seq = append(seq, f.nextOption(seq[len(seq)-1]))
	}
	if got := strings.Join(seq, "|"); got != "|admin|agent|" {
		t.Errorf("cycle = %q", got)
	}
	if (FilterChoice{}).nextOption("") != "" {
		t.Error("empty choice should stay empty")
	}
}

func TestStatsLoadedShowsCounts(t *testing.T) {
	app, _ := newTestApp(t, AppOptions{})
	app = drive(t, app, app.Init())

	m, _ := app.Update(StatsLoaded{Stats: []store.CollectionStats{{Name: store.Users, Total: 2, Active: 1}}})
	app = m.(App)
	if !strings.Contains(app.View(), "Users 1/2") {
		t.Error("tab bar should show user counts")
	}

	m, _ = app.Update(StatsLoaded{Err: fmt.Errorf("offline")})
	app = m.(App)
	if !strings.Contains(app.View(), "Users 1/2") {
		t.Error("a failed stats load should keep the last counts")
	}
}
