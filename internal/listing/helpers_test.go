package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeAPI is an in-memory Collection with call recording.
type fakeAPI struct {
	mu      sync.Mutex
	items   []Item
	fetches []Query
	toggles []string
	deletes []string

	fetchErr  error
	toggleErr error
	deleteErr error
	echo      func(id string, now bool) *bool // overrides the echoed toggle value
}

func newFakeAPI(n int) *fakeAPI {
	api := &fakeAPI{}
	for i := 1; i <= n; i++ {
		api.items = append(api.items, Item{
			ID:         fmt.Sprintf("p%d", i),
			Title:      fmt.Sprintf("Flat %d", i),
			Active:     i%2 == 0,
			Attributes: map[string]string{"city": "Pune"},
		})
	}
	return api
}

func (f *fakeAPI) FetchPage(_ context.Context, q Query) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, q)
	if f.fetchErr != nil {
		return Page{}, f.fetchErr
	}

	var matched []Item
	for _, it := range f.items {
		if q.SearchTerm() != "" && !strings.Contains(it.Title, q.SearchTerm()) {
			continue
		}
		if v, ok := q.Field("city"); ok && it.Attributes["city"] != v.Text {
			continue
		}
		matched = append(matched, it)
	}
	start := (q.Page() - 1) * q.PageSize()
	end := start + q.PageSize()
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return Page{
		Items:      cloneItems(matched[start:end]),
		Page:       q.Page(),
		TotalCount: len(matched),
		TotalPages: pagesFor(len(matched), q.PageSize()),
	}, nil
}

func (f *fakeAPI) ToggleStatus(_ context.Context, id string) (*bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles = append(f.toggles, id)
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Active = !f.items[i].Active
			if f.echo != nil {
				return f.echo(id, f.items[i].Active), nil
			}
			v := f.items[i].Active
			return &v, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeAPI) DeleteItem(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func (f *fakeAPI) lastFetch() Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[len(f.fetches)-1]
}

// virtualClock stands in for tea.Tick. Timers only fire when the test
// advances the clock.
type virtualClock struct {
	now    time.Duration
	timers []*vtimer
}

type vtimer struct {
	at    time.Duration
	fn    func(time.Time) tea.Msg
	fired bool
}

func (v *virtualClock) tick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	v.timers = append(v.timers, &vtimer{at: v.now + d, fn: fn})
	return nil
}

// advance moves the clock to t and returns the messages of every timer due.
func (v *virtualClock) advance(t time.Duration) []tea.Msg {
	v.now = t
	var msgs []tea.Msg
	for _, tm := range v.timers {
		if !tm.fired && tm.at <= t {
			tm.fired = true
			msgs = append(msgs, tm.fn(time.Time{}))
		}
	}
	return msgs
}

var testConfig = CompilerConfig{
	Fields: []FieldSpec{
		{Name: "city", Kind: FieldText},
		{Name: "bedrooms", Kind: FieldNumber},
	},
	Budgets:     DefaultBudgets,
	BudgetField: "budget",
	PriceField:  "price",
	PageSize:    10,
}

func newTestController(api *fakeAPI, clock *virtualClock) *Controller {
	return New("properties", api, testConfig, Options{Tick: clock.tick})
}

// drive runs cmd to completion, feeding every resulting message back into
// c. Messages the controller does not consume (MutationSettledMsg) are
// returned.
func drive(c *Controller, cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case MutationSettledMsg:
			out = append(out, msg)
		}
		queue = append(queue, c.Update(msg))
	}
	return out
}

// feed delivers msgs to c and drives whatever they produce.
func feed(c *Controller, msgs ...tea.Msg) []tea.Msg {
	var out []tea.Msg
	for _, m := range msgs {
		out = append(out, drive(c, c.Update(m))...)
	}
	return out
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
