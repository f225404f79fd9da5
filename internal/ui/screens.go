package ui

import (
	"fmt"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/store"
)

// FilterChoice is a filter the number keys cycle through. An empty option
// is always implied first and means "any".
type FilterChoice struct {
	Name    string
	Label   string
	Options []string
}

// Screen describes one tab: which collection it lists and how.
type Screen struct {
	ID      string // collection name and controller ListID
	Title   string
	Config  listing.CompilerConfig
	Filters []FilterChoice
	Columns []string // attributes shown after the title
}

// DefaultScreens are the property, blog and user management tabs.
func DefaultScreens(pageSize int) []Screen {
	bedrooms := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		bedrooms = append(bedrooms, fmt.Sprint(i))
	}

	return []Screen{
		{
			ID:    store.Properties,
			Title: "Properties",
			Config: listing.CompilerConfig{
				Fields: []listing.FieldSpec{
					{Name: "city", Kind: listing.FieldText},
					{Name: "type", Kind: listing.FieldText},
					{Name: "listing", Kind: listing.FieldText},
					{Name: "bedrooms", Kind: listing.FieldNumber},
				},
				Budgets:     listing.DefaultBudgets,
				BudgetField: "budget",
				PriceField:  "price",
				PageSize:    pageSize,
			},
			Filters: []FilterChoice{
				{Name: "city", Label: "City", Options: []string{"Mumbai", "Pune", "Bengaluru", "Delhi", "Goa", "Hyderabad"}},
				{Name: "type", Label: "Type", Options: []string{"apartment", "villa", "plot", "office"}},
				{Name: "listing", Label: "For", Options: []string{"sale", "rent"}},
				{Name: "bedrooms", Label: "Beds", Options: bedrooms},
				{Name: "budget", Label: "Budget", Options: listing.DefaultBudgets.Labels()},
			},
			Columns: []string{"city", "bedrooms", "price"},
		},
		{
			ID:    store.Posts,
			Title: "Blog",
			Config: listing.CompilerConfig{
				Fields:   []listing.FieldSpec{{Name: "category", Kind: listing.FieldText}},
				PageSize: pageSize,
			},
			Filters: []FilterChoice{
				{Name: "category", Label: "Category", Options: []string{"market", "guides", "legal", "interiors"}},
			},
			Columns: []string{"category"},
		},
		{
			ID:    store.Users,
			Title: "Users",
			Config: listing.CompilerConfig{
				Fields:   []listing.FieldSpec{{Name: "role", Kind: listing.FieldText}},
				PageSize: pageSize,
			},
			Filters: []FilterChoice{
				{Name: "role", Label: "Role", Options: []string{"admin", "agent", "user"}},
			},
			Columns: []string{"role"},
		},
	}
}

// nextOption returns the option after current, wrapping through "" (any).
func (f FilterChoice) nextOption(current string) string {
	if current == "" {
		if len(f.Options) == 0 {
			return ""
		}
		return f.Options[0]
	}
	for i, o := range f.Options {
		if o == current && i+1 < len(f.Options) {
			return f.Options[i+1]
		}
	}
	return ""
}
