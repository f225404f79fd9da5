package store

import (
	"fmt"
	"sort"

	"github.com/abelbrown/estatedesk/internal/listing"
)

// Collection names.
const (
	Properties = "properties"
	Posts      = "posts"
	Users      = "users"
)

// Filter maps a query field onto a column.
type Filter struct {
	Column string
	Kind   listing.FieldKind
}

// TableSpec describes how one collection is stored and searched.
// The same spec drives the SQLite and Postgres backends.
type TableSpec struct {
	Name        string
	TitleCol    string
	SubtitleCol string
	SearchCols  []string          // free-text search matches any of these
	Attrs       []string          // columns copied into Item.Attributes
	Filters     map[string]Filter // query field name -> column
	OrderBy     string
}

var tables = map[string]TableSpec{
	Properties: {
		Name:        Properties,
		TitleCol:    "title",
		SubtitleCol: "address",
		SearchCols:  []string{"title", "address"},
		Attrs:       []string{"city", "type", "listing", "bedrooms", "price"},
		Filters: map[string]Filter{
			"city":     {Column: "city", Kind: listing.FieldText},
			"type":     {Column: "type", Kind: listing.FieldText},
			"listing":  {Column: "listing", Kind: listing.FieldText},
			"bedrooms": {Column: "bedrooms", Kind: listing.FieldNumber},
			"price":    {Column: "price", Kind: listing.FieldRange},
		},
		OrderBy: "created_at DESC, id ASC",
	},
	Posts: {
		Name:        Posts,
		TitleCol:    "title",
		SubtitleCol: "author",
		SearchCols:  []string{"title", "author"},
		Attrs:       []string{"category"},
		Filters: map[string]Filter{
			"category": {Column: "category", Kind: listing.FieldText},
		},
		OrderBy: "created_at DESC, id ASC",
	},
	Users: {
		Name:        Users,
		TitleCol:    "name",
		SubtitleCol: "email",
		SearchCols:  []string{"name", "email"},
		Attrs:       []string{"role"},
		Filters: map[string]Filter{
			"role": {Column: "role", Kind: listing.FieldText},
		},
		OrderBy: "created_at DESC, id ASC",
	},
}

// Spec returns the table spec for a collection name.
func Spec(name string) (TableSpec, error) {
	spec, ok := tables[name]
	if !ok {
		return TableSpec{}, fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	return spec, nil
}

// Names returns all collection names in sorted order.
func Names() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldKind reports the kind of a filterable field, for parsing
// query strings. ok is false for fields the collection does not filter on.
func (t TableSpec) FieldKind(field string) (kind listing.FieldKind, ok bool) {
	f, ok := t.Filters[field]
	return f.Kind, ok
}
