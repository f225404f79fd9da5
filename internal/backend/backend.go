// Package backend opens the collection source selected by config: a local
// SQLite file, a Postgres database, or a remote listingd server.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelbrown/estatedesk/internal/config"
	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/otel"
	"github.com/abelbrown/estatedesk/internal/pgstore"
	"github.com/abelbrown/estatedesk/internal/restapi"
	"github.com/abelbrown/estatedesk/internal/store"
)

// Seeder loads a dataset. Only the database backends implement it.
type Seeder interface {
	Insert(ctx context.Context, ds store.Dataset) (int, error)
}

// Backend is an opened collection source.
type Backend struct {
	Mode        string
	collections map[string]listing.Collection
	stats       func(ctx context.Context) ([]store.CollectionStats, error)
	seeder      Seeder
	close       func()
}

// Collections returns one API per collection name.
func (b *Backend) Collections() map[string]listing.Collection {
	return b.collections
}

// Stats counts rows per collection.
func (b *Backend) Stats(ctx context.Context) ([]store.CollectionStats, error) {
	return b.stats(ctx)
}

// Seeder returns the dataset loader, or false in remote mode.
func (b *Backend) Seeder() (Seeder, bool) {
	return b.seeder, b.seeder != nil
}

// Close releases the connection pool, database file or page cache.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the backend named by cfg.Backend.Mode.
// events is handed to the REST client and may be nil.
func Open(ctx context.Context, cfg *config.Config, events *otel.Logger) (*Backend, error) {
	switch cfg.Backend.Mode {
	case config.BackendSQLite:
		if cfg.Backend.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Backend.DBPath), 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		st, err := store.Open(cfg.Backend.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Backend{
			Mode:        cfg.Backend.Mode,
			collections: st.Collections(),
			stats:       st.Stats,
			seeder:      st,
			close:       func() { _ = st.Close() },
		}, nil

	case config.BackendPostgres:
		st, err := pgstore.Open(ctx, pgstore.Config{
			DatabaseURL: cfg.Backend.DatabaseURL,
			MaxConns:    cfg.Backend.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Backend{
			Mode:        cfg.Backend.Mode,
			collections: st.Collections(),
			stats:       st.Stats,
			seeder:      st,
			close:       func() { _ = st.Close() },
		}, nil

	case config.BackendRemote:
		c, err := restapi.New(restapi.Options{
			BaseURL:           cfg.Backend.APIURL,
			Timeout:           cfg.ClientTimeout(),
			RequestsPerSecond: cfg.Client.RequestsPerSecond,
			MaxRetries:        cfg.Client.MaxRetries,
			CacheTTL:          cfg.CacheTTL(),
			CacheSize:         cfg.Client.CacheSize,
			Events:            events,
		})
		if err != nil {
			return nil, err
		}
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("reach %s: %w", cfg.Backend.APIURL, err)
		}
		return &Backend{
			Mode:        cfg.Backend.Mode,
			collections: c.Collections(store.Names()...),
			stats:       c.Stats,
			close:       c.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
}
