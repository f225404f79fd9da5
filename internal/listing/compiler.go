package listing

import (
	"strconv"
	"strings"
)

// Well-known external parameter names understood by Seed.
const (
	ParamSearch = "q"
	ParamPage   = "page"
)

// FieldSpec declares one structured filter a screen offers.
type FieldSpec struct {
	Name string
	Kind FieldKind // FieldText or FieldNumber
}

// CompilerConfig describes the filters of one screen. Screens share the
// mechanism and differ only in this configuration.
type CompilerConfig struct {
	Fields []FieldSpec

	// Budgets, BudgetField and PriceField enable budget labels: a selection
	// named BudgetField is resolved through Budgets into a Range stored under
	// PriceField. Leave Budgets nil to disable.
	Budgets     BudgetTable
	BudgetField string
	PriceField  string

	PageSize int
}

// FilterCompiler turns raw screen inputs into a canonical Query.
// Not safe for concurrent use; owned by a single Controller.
type FilterCompiler struct {
	cfg        CompilerConfig
	specs      map[string]FieldSpec
	term       string
	selections map[string]string
	touched    map[string]bool // selections the user set explicitly
	termSet    bool
	seeded     bool
	page       int
}

// NewFilterCompiler creates a compiler for the given screen configuration.
func NewFilterCompiler(cfg CompilerConfig) *FilterCompiler {
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	specs := make(map[string]FieldSpec, len(cfg.Fields))
	for _, f := range cfg.Fields {
		specs[f.Name] = f
	}
	return &FilterCompiler{
		cfg:        cfg,
		specs:      specs,
		selections: make(map[string]string),
		touched:    make(map[string]bool),
		page:       1,
	}
}

// Config returns the compiler configuration.
func (c *FilterCompiler) Config() CompilerConfig {
	return c.cfg
}

// Seed applies externally supplied parameters (a deep link, CLI flags).
// Only the first call has any effect, and it never overrides input the
// user has already given. Returns true if the parameters were applied.
func (c *FilterCompiler) Seed(params map[string]string) bool {
	if c.seeded {
		return false
	}
	c.seeded = true
	for key, value := range params {
		switch {
		case key == ParamSearch:
			if !c.termSet {
				c.term = value
			}
		case key == ParamPage:
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
				c.page = n
			}
		case c.known(key):
			if !c.touched[key] {
				c.setSelection(key, value)
			}
		}
	}
	return true
}

// Seeded reports whether external parameters were already consumed.
func (c *FilterCompiler) Seeded() bool {
	return c.seeded
}

// SetTerm records user-typed search text and resets to page 1.
func (c *FilterCompiler) SetTerm(term string) {
	c.term = term
	c.termSet = true
	c.page = 1
}

// Term returns the raw search text.
func (c *FilterCompiler) Term() string {
	return c.term
}

// SetSelection records a user filter selection and resets to page 1.
// An empty value clears the selection. Unknown names are ignored.
func (c *FilterCompiler) SetSelection(name, value string) bool {
	if !c.known(name) {
		return false
	}
	c.touched[name] = true
	c.setSelection(name, value)
	c.page = 1
	return true
}

// Selection returns the current raw value of a selection.
func (c *FilterCompiler) Selection(name string) string {
	return c.selections[name]
}

// SetPage changes only the page number.
func (c *FilterCompiler) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.page = n
}

// Compile builds the Query for the current inputs. Compiling the same
// inputs twice yields Queries that compare Equal.
func (c *FilterCompiler) Compile() Query {
	fields := make(map[string]FieldValue, len(c.selections))
	for name, raw := range c.selections {
		if c.cfg.Budgets != nil && name == c.cfg.BudgetField {
			if r, ok := c.cfg.Budgets.Resolve(raw); ok {
				fields[c.cfg.PriceField] = FieldValue{Kind: FieldRange, Range: r}
			}
			continue
		}
		spec := c.specs[name]
		switch spec.Kind {
		case FieldNumber:
			n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				continue
			}
			fields[name] = Number(n)
		default:
			fields[name] = Text(raw)
		}
	}
	return NewQuery(c.term, fields, c.page, c.cfg.PageSize)
}

func (c *FilterCompiler) known(name string) bool {
	if _, ok := c.specs[name]; ok {
		return true
	}
	return c.cfg.Budgets != nil && name == c.cfg.BudgetField
}

func (c *FilterCompiler) setSelection(name, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(c.selections, name)
		return
	}
	c.selections[name] = value
}
