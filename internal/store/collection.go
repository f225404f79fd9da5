package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abelbrown/estatedesk/internal/listing"
)

// Collection serves one table as a listing.Collection.
type Collection struct {
	s    *Store
	spec TableSpec
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.spec.Name }

// Spec returns the table description.
func (c *Collection) Spec() TableSpec { return c.spec }

// FetchPage runs q and returns one page plus the total match count.
// Thread-safe: acquires read lock.
func (c *Collection) FetchPage(ctx context.Context, q listing.Query) (listing.Page, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	st := Build(c.spec, q, SQLiteDialect)

	var total int
	if err := c.s.db.QueryRowContext(ctx, st.Count, st.CountArgs...).Scan(&total); err != nil {
		return listing.Page{}, fmt.Errorf("count %s: %w", c.spec.Name, err)
	}

	page := listing.Page{Page: q.Page(), TotalCount: total}
	if total == 0 {
		return page, nil
	}
	page.TotalPages = (total + q.PageSize() - 1) / q.PageSize()

	rows, err := c.s.db.QueryContext(ctx, st.Select, st.Args...)
	if err != nil {
		return listing.Page{}, fmt.Errorf("query %s: %w", c.spec.Name, err)
	}
	defer rows.Close()

	page.Items, err = ScanItems(rows, c.spec)
	if err != nil {
		return listing.Page{}, fmt.Errorf("scan %s: %w", c.spec.Name, err)
	}
	return page, nil
}

// ToggleStatus flips the active flag and returns the stored value.
// Thread-safe: acquires write lock.
func (c *Collection) ToggleStatus(ctx context.Context, id string) (*bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var active bool
	q := "UPDATE " + c.spec.Name + " SET active = NOT active WHERE id = ? RETURNING active"
	err := c.s.db.QueryRowContext(ctx, q, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", c.spec.Name, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle %s %s: %w", c.spec.Name, id, err)
	}
	return &active, nil
}

// DeleteItem removes one row. Deleting a missing id returns ErrNotFound.
// Thread-safe: acquires write lock.
func (c *Collection) DeleteItem(ctx context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx, "DELETE FROM "+c.spec.Name+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.spec.Name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", c.spec.Name, id, ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ScanItems reads rows produced by a Build select.
func ScanItems(rows rowScanner, spec TableSpec) ([]listing.Item, error) {
	var items []listing.Item
	for rows.Next() {
		it, err := ScanItem(rows, spec)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ScanItem reads the current row of a Build select into an Item.
func ScanItem(row interface{ Scan(dest ...any) error }, spec TableSpec) (listing.Item, error) {
	var it listing.Item
	attrs := make([]string, len(spec.Attrs))
	dest := []any{&it.ID, &it.Title, &it.Subtitle, &it.Active}
	for i := range attrs {
		dest = append(dest, &attrs[i])
	}
	if err := row.Scan(dest...); err != nil {
		return it, err
	}
	it.Attributes = make(map[string]string, len(attrs))
	for i, name := range spec.Attrs {
		it.Attributes[name] = attrs[i]
	}
	return it, nil
}
