package listing

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func loaded(t *testing.T, api *fakeAPI, clock *virtualClock) *Controller {
	t.Helper()
	c := newTestController(api, clock)
	drive(c, c.Init())
	if s := c.Snapshot(); s.Status != StatusLoaded {
		t.Fatalf("after Init status = %v, want loaded", s.Status)
	}
	return c
}

func TestInitLoadsFirstPage(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})

	s := c.Snapshot()
	if len(s.Items) != 10 || s.Items[0].ID != "p1" {
		t.Errorf("items = %v", ids(s.Items))
	}
	if s.Page != 1 || s.TotalPages != 3 || s.TotalCount != 25 {
		t.Errorf("page %d/%d total %d, want 1/3 total 25", s.Page, s.TotalPages, s.TotalCount)
	}
	if first, last := s.Range(); first != 1 || last != 10 {
		t.Errorf("Range() = %d,%d, want 1,10", first, last)
	}
}

func TestStatusIdleBeforeInit(t *testing.T) {
	c := newTestController(newFakeAPI(3), &virtualClock{})
	if s := c.Snapshot(); s.Status != StatusIdle || s.Loading() {
		t.Errorf("status = %v, want idle", s.Status)
	}
}

// Rapid keystrokes inside the quiet period produce one fetch for the last term.
func TestDebounceCoalescesKeystrokes(t *testing.T) {
	api := newFakeAPI(25)
	clock := &virtualClock{}
	c := loaded(t, api, clock)
	before := api.fetchCount()

	terms := []string{"F", "Fl", "Fla", "Flat", "Flat 1"}
	for i, term := range terms {
		clock.now = time.Duration(i*50) * time.Millisecond
		drive(c, c.SetSearchTerm(term))
	}
	if s := c.Snapshot(); s.Status != StatusDebouncing || !s.Loading() {
		t.Fatalf("status = %v, want debouncing", s.Status)
	}
	if api.fetchCount() != before {
		t.Fatal("fetched before quiet period elapsed")
	}

	feed(c, clock.advance(time.Second)...)

	if got := api.fetchCount() - before; got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
	if term := api.lastFetch().SearchTerm(); term != "Flat 1" {
		t.Errorf("fetched term %q, want %q", term, "Flat 1")
	}
}

func TestScenarioSearchRetypedWithinQuietPeriod(t *testing.T) {
	api := newFakeAPI(5)
	clock := &virtualClock{}
	c := loaded(t, api, clock)
	before := api.fetchCount()

	drive(c, c.SetSearchTerm("Mumbai"))
	feed(c, clock.advance(100*time.Millisecond)...)
	drive(c, c.SetSearchTerm("Mumbai West"))

	// The first timer (due at 300ms) fires but has been superseded.
	feed(c, clock.advance(399*time.Millisecond)...)
	if api.fetchCount() != before {
		t.Fatalf("fetch dispatched before 400ms")
	}

	feed(c, clock.advance(400*time.Millisecond)...)
	if got := api.fetchCount() - before; got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
	if term := api.lastFetch().SearchTerm(); term != "Mumbai West" {
		t.Errorf("fetched %q, want %q", term, "Mumbai West")
	}
}

func TestFilterChangesResetToPageOne(t *testing.T) {
	api := newFakeAPI(25)
	clock := &virtualClock{}
	c := loaded(t, api, clock)

	drive(c, c.GoToPage(3))
	if p := c.Snapshot().Page; p != 3 {
		t.Fatalf("page = %d, want 3", p)
	}

	drive(c, c.SetFilter("city", "Pune"))
	q := api.lastFetch()
	if q.Page() != 1 {
		t.Errorf("SetFilter dispatched page %d, want 1", q.Page())
	}
	if v, _ := q.Field("city"); v.Text != "Pune" {
		t.Errorf("city = %q", v.Text)
	}

	drive(c, c.GoToPage(2))
	drive(c, c.SetSearchTerm("Flat"))
	feed(c, clock.advance(time.Second)...)
	if q := api.lastFetch(); q.Page() != 1 || q.SearchTerm() != "Flat" {
		t.Errorf("search dispatched %v, want page 1 term Flat", q)
	}
}

func TestGoToPagePreservesFilters(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})

	drive(c, c.SetFilter("city", "Pune"))
	drive(c, c.SetFilter("bedrooms", "2"))
	prev := api.lastFetch()

	drive(c, c.GoToPage(2))
	q := api.lastFetch()
	if q.Page() != 2 {
		t.Fatalf("page = %d, want 2", q.Page())
	}
	if !q.SameFilters(prev) {
		t.Errorf("filters changed: %v -> %v", prev, q)
	}
}

func TestGoToPageClamps(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})

	drive(c, c.GoToPage(99))
	if q := api.lastFetch(); q.Page() != 3 {
		t.Errorf("GoToPage(99) dispatched page %d, want 3", q.Page())
	}

	before := api.fetchCount()
	drive(c, c.GoToPage(3))
	if api.fetchCount() != before {
		t.Error("navigating to the current page should not fetch")
	}

	drive(c, c.GoToPage(-4))
	if q := api.lastFetch(); q.Page() != 1 {
		t.Errorf("GoToPage(-4) dispatched page %d, want 1", q.Page())
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})

	cmdA := c.SetFilter("city", "Mumbai") // no matches
	cmdB := c.SetFilter("city", "")       // cleared: everything

	msgB := cmdB()
	msgA := cmdA()
	c.Update(msgB)
	want := ids(c.Snapshot().Items)
	c.Update(msgA)

	s := c.Snapshot()
	if !reflect.DeepEqual(ids(s.Items), want) {
		t.Errorf("stale response overwrote items: %v", ids(s.Items))
	}
	if s.TotalCount != 25 || s.Status != StatusLoaded {
		t.Errorf("total %d status %v, want 25 loaded", s.TotalCount, s.Status)
	}
}

func TestRefreshLandingDuringDebounceKeepsLoading(t *testing.T) {
	api := newFakeAPI(25)
	clock := &virtualClock{}
	c := loaded(t, api, clock)

	refresh := c.Refresh()
	c.SetSearchTerm("Flat 1")
	c.Update(refresh())

	s := c.Snapshot()
	if s.Status != StatusDebouncing || !s.Loading() {
		t.Fatalf("status = %v, want debouncing while a search is pending", s.Status)
	}
	if s.TotalCount != 25 {
		t.Errorf("refresh result should still be applied, total = %d", s.TotalCount)
	}

	feed(c, clock.advance(SearchDebounce)...)
	if s := c.Snapshot(); s.Status != StatusLoaded || api.lastFetch().SearchTerm() != "Flat 1" {
		t.Errorf("status %v last term %q, want loaded with the typed term", s.Status, api.lastFetch().SearchTerm())
	}
}

func TestStaleFailureDiscarded(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})

	cmdA := c.GoToPage(2)
	api.fetchErr = errors.New("boom")
	msgA := cmdA()
	api.fetchErr = nil
	cmdB := c.GoToPage(3)

	c.Update(cmdB())
	c.Update(msgA)
	s := c.Snapshot()
	if s.Status != StatusLoaded || s.ErrorMessage != "" {
		t.Errorf("stale failure surfaced: status %v msg %q", s.Status, s.ErrorMessage)
	}
	if s.Page != 3 {
		t.Errorf("page = %d, want 3", s.Page)
	}
}

func TestFetchErrorKeepsItems(t *testing.T) {
	api := newFakeAPI(25)
	clock := &virtualClock{}
	c := loaded(t, api, clock)
	before := ids(c.Snapshot().Items)

	api.fetchErr = errors.New("service unavailable")
	drive(c, c.GoToPage(2))

	s := c.Snapshot()
	if s.Status != StatusError || s.ErrorMessage != "service unavailable" {
		t.Fatalf("status %v msg %q", s.Status, s.ErrorMessage)
	}
	if !reflect.DeepEqual(ids(s.Items), before) {
		t.Errorf("items changed on error: %v", ids(s.Items))
	}
	var fe *FetchError
	if !errors.As(c.Err(), &fe) {
		t.Errorf("Err() = %v, want *FetchError", c.Err())
	}

	// New input leaves the error state.
	api.fetchErr = nil
	drive(c, c.SetSearchTerm("Flat"))
	if s := c.Snapshot(); s.Status != StatusDebouncing || s.ErrorMessage != "" {
		t.Errorf("after input status %v msg %q", s.Status, s.ErrorMessage)
	}
	feed(c, clock.advance(time.Second)...)
	if s := c.Snapshot(); s.Status != StatusLoaded {
		t.Errorf("status %v, want loaded", s.Status)
	}
}

func TestToggleAppliesOptimistically(t *testing.T) {
	api := newFakeAPI(5)
	c := loaded(t, api, &virtualClock{})

	cmd, err := c.Toggle("p1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !c.Snapshot().Items[0].Active {
		t.Error("toggle not applied before server answered")
	}
	if !c.Pending("p1") {
		t.Error("p1 should be pending")
	}

	msgs := drive(c, cmd)
	if c.Pending("p1") {
		t.Error("p1 still pending after settle")
	}
	if len(msgs) != 1 {
		t.Fatalf("settled messages = %d, want 1", len(msgs))
	}
	if m := msgs[0].(MutationSettledMsg); m.ItemID != "p1" || m.Kind != MutationToggle || m.Err != nil {
		t.Errorf("settled = %+v", m)
	}
}

func TestToggleServerValueWins(t *testing.T) {
	api := newFakeAPI(5)
	api.echo = func(string, bool) *bool { v := false; return &v }
	c := loaded(t, api, &virtualClock{})

	cmd, _ := c.Toggle("p1") // false -> true locally
	drive(c, cmd)
	if c.Snapshot().Items[0].Active {
		t.Error("server echoed false, item should be inactive")
	}
}

func TestToggleWithoutEchoKeepsOptimisticValue(t *testing.T) {
	api := newFakeAPI(5)
	api.echo = func(string, bool) *bool { return nil }
	c := loaded(t, api, &virtualClock{})

	cmd, _ := c.Toggle("p2") // true -> false
	drive(c, cmd)
	if c.Snapshot().Items[1].Active {
		t.Error("optimistic value should stand")
	}
}

func TestToggleFailureRollsBack(t *testing.T) {
	api := newFakeAPI(5)
	api.toggleErr = errors.New("forbidden")
	c := loaded(t, api, &virtualClock{})

	cmd, err := c.Toggle("p2")
	if err != nil {
		t.Fatal(err)
	}
	msgs := drive(c, cmd)

	if !c.Snapshot().Items[1].Active {
		t.Error("p2 should be rolled back to active")
	}
	m := msgs[0].(MutationSettledMsg)
	var me *MutationError
	if !errors.As(m.Err, &me) || me.ItemID != "p2" || me.Kind != MutationToggle {
		t.Errorf("settled err = %v", m.Err)
	}
	if s := c.Snapshot(); s.Status != StatusLoaded {
		t.Errorf("mutation failure changed screen status to %v", s.Status)
	}
}

func TestScenarioDoubleToggleConflicts(t *testing.T) {
	api := newFakeAPI(5)
	c := loaded(t, api, &virtualClock{})

	first, err := c.Toggle("p1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Toggle("p1")
	if !errors.Is(err, ErrMutationConflict) || second != nil {
		t.Fatalf("second toggle = %v, %v; want conflict", second, err)
	}
	if !c.Snapshot().Items[0].Active {
		t.Error("rejected toggle must not change state")
	}

	drive(c, first)
	if len(api.toggles) != 1 {
		t.Errorf("network calls = %d, want 1", len(api.toggles))
	}
}

func TestToggleUnknownItem(t *testing.T) {
	c := loaded(t, newFakeAPI(3), &virtualClock{})
	if _, err := c.Toggle("nope"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}

func TestRollbackAfterRefreshIsLastWriter(t *testing.T) {
	api := newFakeAPI(5)
	c := loaded(t, api, &virtualClock{})

	api.toggleErr = errors.New("boom")
	toggle, _ := c.Toggle("p1") // prior false
	drive(c, c.Refresh())       // server still says false
	drive(c, toggle)

	if c.Snapshot().Items[0].Active {
		t.Error("rollback should leave p1 inactive")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	api := newFakeAPI(5)
	c := loaded(t, api, &virtualClock{})

	if _, err := c.Delete("p1", false); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("err = %v, want ErrNotConfirmed", err)
	}
	if len(api.deletes) != 0 {
		t.Error("unconfirmed delete reached the API")
	}
}

func TestDeleteEvictsOnSuccess(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})

	cmd, err := c.Delete("p3", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Snapshot().Items) != 10 {
		t.Error("item removed before server confirmed")
	}
	drive(c, cmd)

	s := c.Snapshot()
	for _, it := range s.Items {
		if it.ID == "p3" {
			t.Fatal("p3 still listed after delete")
		}
	}
	if s.TotalCount != 24 {
		t.Errorf("total = %d, want 24", s.TotalCount)
	}
	if len(s.Items) != 9 {
		t.Errorf("items = %d, want 9", len(s.Items))
	}
}

func TestDeleteFailureLeavesList(t *testing.T) {
	api := newFakeAPI(5)
	api.deleteErr = errors.New("conflict")
	c := loaded(t, api, &virtualClock{})

	cmd, _ := c.Delete("p1", true)
	msgs := drive(c, cmd)

	s := c.Snapshot()
	if len(s.Items) != 5 || s.TotalCount != 5 {
		t.Errorf("list changed: %d items, total %d", len(s.Items), s.TotalCount)
	}
	m := msgs[0].(MutationSettledMsg)
	var me *MutationError
	if !errors.As(m.Err, &me) || me.Kind != MutationDelete {
		t.Errorf("settled err = %v", m.Err)
	}
	if c.Pending("p1") {
		t.Error("p1 still pending")
	}
}

func TestToggleAndDeleteConflict(t *testing.T) {
	api := newFakeAPI(5)
	c := loaded(t, api, &virtualClock{})

	if _, err := c.Toggle("p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Delete("p1", true); !errors.Is(err, ErrMutationConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestScenarioDeleteLastItemStepsBack(t *testing.T) {
	api := newFakeAPI(21)
	c := loaded(t, api, &virtualClock{})
	drive(c, c.GoToPage(3))
	if s := c.Snapshot(); s.Page != 3 || len(s.Items) != 1 {
		t.Fatalf("page %d with %d items, want 3 with 1", s.Page, len(s.Items))
	}

	cmd, _ := c.Delete("p21", true)
	drive(c, cmd)

	s := c.Snapshot()
	if s.Page != 2 || s.TotalPages != 2 || s.TotalCount != 20 {
		t.Errorf("page %d/%d total %d, want 2/2 total 20", s.Page, s.TotalPages, s.TotalCount)
	}
	if first, last := s.Range(); first != 11 || last != 20 {
		t.Errorf("showing %d-%d, want 11-20", first, last)
	}
	if q := api.lastFetch(); q.Page() != 2 {
		t.Errorf("re-fetched page %d, want 2", q.Page())
	}
}

func TestDeleteFromPartialLastPageDoesNotStepBack(t *testing.T) {
	api := newFakeAPI(25)
	c := loaded(t, api, &virtualClock{})
	drive(c, c.GoToPage(3))
	before := api.fetchCount()

	cmd, _ := c.Delete("p25", true)
	drive(c, cmd)

	s := c.Snapshot()
	if s.Page != 3 || s.TotalCount != 24 || len(s.Items) != 4 {
		t.Errorf("page %d total %d items %d, want 3/24/4", s.Page, s.TotalCount, len(s.Items))
	}
	if api.fetchCount() != before {
		t.Error("page still has items, no re-fetch expected")
	}
}

func TestSeedAppliesExternalParams(t *testing.T) {
	api := newFakeAPI(25)
	c := newTestController(api, &virtualClock{})
	c.Seed(map[string]string{"q": "Flat", "city": "Pune", "page": "2", "budget": "Under ₹10L"})
	drive(c, c.Init())

	q := api.lastFetch()
	if q.SearchTerm() != "Flat" || q.Page() != 2 {
		t.Errorf("query = %v", q)
	}
	if v, ok := q.Field("price"); !ok || v.Range.Max != 1_000_000 {
		t.Errorf("price = %v, %v", v, ok)
	}
	if c.Seed(map[string]string{"q": "other"}) {
		t.Error("second Seed should be ignored")
	}
}

func TestCloseIgnoresLateMessages(t *testing.T) {
	api := newFakeAPI(5)
	clock := &virtualClock{}
	c := loaded(t, api, clock)

	fetch := c.GoToPage(1)
	toggle, _ := c.Toggle("p1")
	drive(c, c.SetSearchTerm("x"))
	c.Close()
	before := c.Snapshot()

	c.Update(toggle())
	feed(c, clock.advance(time.Second)...)
	if fetch != nil {
		c.Update(fetch())
	}
	if !reflect.DeepEqual(c.Snapshot(), before) {
		t.Error("snapshot changed after Close")
	}
	if cmd := c.Refresh(); cmd != nil {
		t.Error("Refresh after Close should be nil")
	}
}

func TestMessagesForOtherListsIgnored(t *testing.T) {
	api := newFakeAPI(5)
	c := loaded(t, api, &virtualClock{})
	other := New("users", newFakeAPI(1), testConfig, Options{Tick: (&virtualClock{}).tick})

	msg := other.Init()()
	if cmd := c.Update(msg); cmd != nil {
		t.Error("foreign message produced a command")
	}
	if n := len(c.Snapshot().Items); n != 5 {
		t.Errorf("items = %d, want 5", n)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	c := loaded(t, newFakeAPI(3), &virtualClock{})
	s := c.Snapshot()
	s.Items[0].Active = true
	s.Items[0].Attributes["city"] = "Goa"

	again := c.Snapshot()
	if again.Items[0].Active || again.Items[0].Attributes["city"] != "Pune" {
		t.Error("mutating a snapshot leaked into the controller")
	}
}
