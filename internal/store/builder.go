package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/abelbrown/estatedesk/internal/listing"
)

// Dialect covers the SQL differences between the backends.
type Dialect struct {
	Placeholder func(n int) string // n is 1-based
	Like        string             // case-insensitive match operator
}

var (
	SQLiteDialect = Dialect{
		Placeholder: func(int) string { return "?" },
		Like:        "LIKE",
	}
	PostgresDialect = Dialect{
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		Like:        "ILIKE",
	}
)

// Statement is a page query split into its count and select halves.
type Statement struct {
	Count     string
	CountArgs []any
	Select    string
	Args      []any
}

type queryBuilder struct {
	d          Dialect
	conditions []string
	args       []any
}

func (qb *queryBuilder) next(arg any) string {
	qb.args = append(qb.args, arg)
	return qb.d.Placeholder(len(qb.args))
}

func (qb *queryBuilder) addCondition(format, column string, arg any) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(format, column, qb.next(arg)))
}

func (qb *queryBuilder) addSearch(cols []string, term string) {
	if term == "" || len(cols) == 0 {
		return
	}
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s %s %s ESCAPE '\\'", col, qb.d.Like, qb.next(pattern))
	}
	qb.conditions = append(qb.conditions, "("+strings.Join(parts, " OR ")+")")
}

func (qb *queryBuilder) where() string {
	if len(qb.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(qb.conditions, " AND ")
}

// applyFilters turns the query's fields into conditions. Fields the
// collection does not know, or values of the wrong kind, are skipped.
func (qb *queryBuilder) applyFilters(spec TableSpec, q listing.Query) {
	qb.addSearch(spec.SearchCols, q.SearchTerm())
	for _, name := range q.FieldNames() {
		f, ok := spec.Filters[name]
		if !ok {
			continue
		}
		v, _ := q.Field(name)
		switch {
		case v.Kind == listing.FieldText && f.Kind == listing.FieldText:
			qb.addCondition("LOWER(%s) = LOWER(%s)", f.Column, v.Text)
		case v.Kind == listing.FieldNumber && f.Kind != listing.FieldText:
			qb.addCondition("%s = %s", f.Column, numArg(v.Num))
		case v.Kind == listing.FieldRange && f.Kind != listing.FieldText:
			if v.Range.Min > 0 {
				qb.addCondition("%s >= %s", f.Column, numArg(v.Range.Min))
			}
			if v.Range.Bounded() {
				qb.addCondition("%s <= %s", f.Column, numArg(v.Range.Max))
			}
		}
	}
}

// Build renders the count and page queries for q against spec.
func Build(spec TableSpec, q listing.Query, d Dialect) Statement {
	qb := &queryBuilder{d: d}
	qb.applyFilters(spec, q)
	where := qb.where()

	countArgs := append([]any(nil), qb.args...)
	count := "SELECT COUNT(*) FROM " + spec.Name + where

	limit := qb.next(q.PageSize())
	offset := qb.next((q.Page() - 1) * q.PageSize())
	sel := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %s OFFSET %s",
		strings.Join(selectColumns(spec), ", "), spec.Name, where, spec.OrderBy, limit, offset)

	return Statement{Count: count, CountArgs: countArgs, Select: sel, Args: qb.args}
}

// selectColumns lists id, title, subtitle, active, then every attribute as text.
func selectColumns(spec TableSpec) []string {
	cols := []string{"id", spec.TitleCol, spec.SubtitleCol, "active"}
	for _, a := range spec.Attrs {
		cols = append(cols, fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '')", a))
	}
	return cols
}

// numArg passes whole numbers as integers so they bind to INTEGER columns.
func numArg(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
