package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/store"
)

var _ listing.Collection = (*Collection)(nil)

// Integration tests run only against a disposable database:
//
//	ESTATEDESK_TEST_PG=postgres://localhost/estatedesk_test?sslmode=disable go test ./internal/pgstore
func openTest(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("ESTATEDESK_TEST_PG")
	if url == "" {
		t.Skip("ESTATEDESK_TEST_PG not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, Config{DatabaseURL: url, MaxConns: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.pool.Exec(ctx, "TRUNCATE properties, posts, users"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestUnknownCollection(t *testing.T) {
	s := &Store{}
	if _, err := s.Collection("agents"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	n, err := s.Insert(ctx, store.Demo(25, time.Now()))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n != 75 {
		t.Fatalf("inserted %d, want 75", n)
	}

	props, _ := s.Collection(store.Properties)
	pg, err := props.FetchPage(ctx, listing.NewQuery("", map[string]listing.FieldValue{
		"city": listing.Text("mumbai"),
	}, 1, 10))
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if pg.TotalCount == 0 || len(pg.Items) == 0 {
		t.Fatal("expected Mumbai properties")
	}
	for _, it := range pg.Items {
		if it.Attributes["city"] != "Mumbai" {
			t.Errorf("%s city = %q", it.ID, it.Attributes["city"])
		}
	}

	id := pg.Items[0].ID
	before := pg.Items[0].Active
	v, err := props.ToggleStatus(ctx, id)
	if err != nil || v == nil || *v == before {
		t.Fatalf("ToggleStatus = %v, %v", v, err)
	}

	if err := props.DeleteItem(ctx, id); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := props.DeleteItem(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range stats {
		if st.Name == store.Properties && st.Total != 24 {
			t.Errorf("properties total = %d, want 24", st.Total)
		}
	}
}
