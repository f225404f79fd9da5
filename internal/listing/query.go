package listing

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultPageSize is used when a compiler is configured without one.
const DefaultPageSize = 10

// FieldKind identifies which member of a FieldValue is meaningful.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldRange
)

// Range is an inclusive numeric range. Max of 0 means no upper bound.
type Range struct {
	Min float64
	Max float64
}

// Bounded reports whether the range has an upper bound.
func (r Range) Bounded() bool {
	return r.Max > 0
}

// FieldValue is one structured filter value: text, number or range.
type FieldValue struct {
	Kind  FieldKind
	Text  string
	Num   float64
	Range Range
}

// Text returns a text field value with surrounding whitespace trimmed.
func Text(s string) FieldValue {
	return FieldValue{Kind: FieldText, Text: strings.TrimSpace(s)}
}

// Number returns a numeric field value.
func Number(n float64) FieldValue {
	return FieldValue{Kind: FieldNumber, Num: n}
}

// RangeOf returns a range field value.
func RangeOf(min, max float64) FieldValue {
	return FieldValue{Kind: FieldRange, Range: Range{Min: min, Max: max}}
}

// String renders the value canonically. Used for query keys and logging.
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldNumber:
		return formatNum(v.Num)
	case FieldRange:
		max := "*"
		if v.Range.Bounded() {
			max = formatNum(v.Range.Max)
		}
		return "{" + formatNum(v.Range.Min) + "," + max + "}"
	default:
		return strconv.Quote(v.Text)
	}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Query is an immutable description of one page request.
// Build it with NewQuery or a FilterCompiler; derive variants with WithPage.
type Query struct {
	term     string
	fields   map[string]FieldValue
	page     int
	pageSize int
}

// NewQuery builds a normalized Query. The fields map is copied; empty text
// fields are dropped. page and pageSize are clamped to at least 1.
func NewQuery(term string, fields map[string]FieldValue, page, pageSize int) Query {
	q := Query{
		term:     strings.TrimSpace(term),
		page:     page,
		pageSize: pageSize,
	}
	if q.page < 1 {
		q.page = 1
	}
	if q.pageSize < 1 {
		q.pageSize = DefaultPageSize
	}
	for name, v := range fields {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if v.Kind == FieldText {
			v = Text(v.Text)
			if v.Text == "" {
				continue
			}
		}
		if q.fields == nil {
			q.fields = make(map[string]FieldValue, len(fields))
		}
		q.fields[name] = v
	}
	return q
}

// SearchTerm returns the trimmed free-text term.
func (q Query) SearchTerm() string { return q.term }

// Page returns the 1-based page number.
func (q Query) Page() int { return q.page }

// PageSize returns the number of items per page.
func (q Query) PageSize() int { return q.pageSize }

// Field returns the named field value, if present.
func (q Query) Field(name string) (FieldValue, bool) {
	v, ok := q.fields[name]
	return v, ok
}

// FieldNames returns the names of all set fields in sorted order.
func (q Query) FieldNames() []string {
	names := make([]string, 0, len(q.fields))
	for name := range q.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithPage returns a copy of q pointing at page n.
func (q Query) WithPage(n int) Query {
	if n < 1 {
		n = 1
	}
	q.page = n // q is a copy; fields map is never written after construction
	return q
}

// SameFilters reports whether q and o differ at most in page number.
func (q Query) SameFilters(o Query) bool {
	if q.term != o.term || q.pageSize != o.pageSize || len(q.fields) != len(o.fields) {
		return false
	}
	for name, v := range q.fields {
		ov, ok := o.fields[name]
		if !ok || v != ov {
			return false
		}
	}
	return true
}

// Equal reports whether two queries are identical after normalization.
func (q Query) Equal(o Query) bool {
	return q.page == o.page && q.SameFilters(o)
}

// FilterKey is a canonical string for everything except the page number.
func (q Query) FilterKey() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strconv.Quote(q.term))
	for _, name := range q.FieldNames() {
		b.WriteString("&")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(q.fields[name].String())
	}
	b.WriteString("&size=")
	b.WriteString(strconv.Itoa(q.pageSize))
	return b.String()
}

// Key is a canonical string for the whole query, page included.
func (q Query) Key() string {
	return q.FilterKey() + "&page=" + strconv.Itoa(q.page)
}

// String implements fmt.Stringer.
func (q Query) String() string {
	return q.Key()
}
