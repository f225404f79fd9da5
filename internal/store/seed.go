package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Property is one row of the properties collection.
type Property struct {
	ID       string
	Title    string
	Address  string
	City     string
	Type     string // "apartment", "villa", "plot", ...
	Listing  string // "sale" or "rent"
	Bedrooms int
	Price    int64 // rupees
	Active   bool
	Created  time.Time
}

// Post is one row of the posts collection.
type Post struct {
	ID       string
	Title    string
	Author   string
	Category string
	Active   bool
	Created  time.Time
}

// User is one row of the users collection.
type User struct {
	ID      string
	Name    string
	Email   string
	Role    string
	Active  bool
	Created time.Time
}

// Dataset is a batch of rows for every collection.
type Dataset struct {
	Properties []Property
	Posts      []Post
	Users      []User
}

var (
	demoCities  = []string{"Mumbai", "Pune", "Bengaluru", "Delhi", "Goa", "Hyderabad"}
	demoTypes   = []string{"apartment", "villa", "plot", "office"}
	demoAreas   = []string{"West", "Central", "Hills", "Bay", "Old Town"}
	demoAuthors = []string{"Asha Rao", "Vikram Shah", "Meera Iyer"}
	demoTopics  = []string{"market", "guides", "legal", "interiors"}
	demoRoles   = []string{"admin", "agent", "user", "user"}
	demoPrices  = []int64{750_000, 3_500_000, 8_000_000, 25_000_000, 90_000_000}
)

// Demo builds a deterministic dataset with n rows per collection.
// IDs are fresh UUIDs; everything else depends only on the row index.
func Demo(n int, now time.Time) Dataset {
	var ds Dataset
	now = now.UTC()
	for i := 0; i < n; i++ {
		city := demoCities[i%len(demoCities)]
		kind := demoTypes[i%len(demoTypes)]
		listingType := "sale"
		if i%3 == 2 {
			listingType = "rent"
		}
		created := now.Add(-time.Duration(i) * time.Hour)

		ds.Properties = append(ds.Properties, Property{
			ID:       uuid.NewString(),
			Title:    fmt.Sprintf("%d BHK %s in %s %s", 1+i%4, kind, city, demoAreas[i%len(demoAreas)]),
			Address:  fmt.Sprintf("%d Station Road, %s", 10+i, city),
			City:     city,
			Type:     kind,
			Listing:  listingType,
			Bedrooms: 1 + i%4,
			Price:    demoPrices[i%len(demoPrices)] + int64(i)*1_000,
			Active:   i%5 != 4,
			Created:  created,
		})
		ds.Posts = append(ds.Posts, Post{
			ID:       uuid.NewString(),
			Title:    fmt.Sprintf("Buying in %s: part %d", city, i+1),
			Author:   demoAuthors[i%len(demoAuthors)],
			Category: demoTopics[i%len(demoTopics)],
			Active:   i%4 != 3,
			Created:  created,
		})
		ds.Users = append(ds.Users, User{
			ID:      uuid.NewString(),
			Name:    fmt.Sprintf("User %03d", i+1),
			Email:   fmt.Sprintf("user%03d@example.com", i+1),
			Role:    demoRoles[i%len(demoRoles)],
			Active:  i%6 != 5,
			Created: created,
		})
	}
	return ds
}

// Insert stores every row of ds, returning the number of rows written.
// Rows whose id already exists are ignored.
// Thread-safe: acquires write lock.
func (s *Store) Insert(ctx context.Context, ds Dataset) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	count := 0
	exec := func(q string, args ...any) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		count += int(n)
		return nil
	}

	for _, p := range ds.Properties {
		if err := exec(`
			INSERT OR IGNORE INTO properties (
				id, title, address, city, type, listing, bedrooms, price, active, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Address, p.City, p.Type, p.Listing, p.Bedrooms, p.Price,
			boolToInt(p.Active), p.Created.UTC(),
		); err != nil {
			return count, fmt.Errorf("insert property %s: %w", p.ID, err)
		}
	}
	for _, p := range ds.Posts {
		if err := exec(`
			INSERT OR IGNORE INTO posts (id, title, author, category, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Author, p.Category, boolToInt(p.Active), p.Created.UTC(),
		); err != nil {
			return count, fmt.Errorf("insert post %s: %w", p.ID, err)
		}
	}
	for _, u := range ds.Users {
		if err := exec(`
			INSERT OR IGNORE INTO users (id, name, email, role, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.Role, boolToInt(u.Active), u.Created.UTC(),
		); err != nil {
			return count, fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}
