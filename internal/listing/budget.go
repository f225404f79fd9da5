package listing

import (
	"sort"
	"strings"
)

// BudgetTable maps a human-readable budget label to a price range.
type BudgetTable map[string]Range

// DefaultBudgets are the labels offered by the property search bar.
// Prices are in rupees; 1L = 100,000 and 1Cr = 10,000,000.
var DefaultBudgets = BudgetTable{
	"Under ₹10L":  {Min: 0, Max: 1_000_000},
	"₹10L – ₹50L": {Min: 1_000_000, Max: 5_000_000},
	"₹50L – ₹1Cr": {Min: 5_000_000, Max: 10_000_000},
	"₹1Cr – ₹5Cr": {Min: 10_000_000, Max: 50_000_000},
	"Above ₹5Cr":  {Min: 50_000_000},
}

// Resolve looks up a label. Only exact matches (after trimming) count;
// an unknown label yields ok=false and must add no price constraint.
func (t BudgetTable) Resolve(label string) (Range, bool) {
	r, ok := t[strings.TrimSpace(label)]
	return r, ok
}

// Labels returns the labels ordered by the lower bound of their range.
func (t BudgetTable) Labels() []string {
	labels := make([]string, 0, len(t))
	for l := range t {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		ri, rj := t[labels[i]], t[labels[j]]
		if ri.Min != rj.Min {
			return ri.Min < rj.Min
		}
		return labels[i] < labels[j]
	})
	return labels
}
