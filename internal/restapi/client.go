package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/time/rate"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/otel"
	"github.com/abelbrown/estatedesk/internal/store"
)

const comp = "restapi"

// APIError is a non-2xx response. Its message is the server's error text
// so it can be shown to the user as is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// Is lets errors.Is match store.ErrNotFound on a 404.
func (e *APIError) Is(target error) bool {
	return target == store.ErrNotFound && e.Status == http.StatusNotFound
}

// Options configures a Client. Zero values pick defaults.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	CacheTTL          time.Duration // 0 disables the page cache
	CacheSize         int64
	Events            *otel.Logger
}

// Client talks to a listingd server.
type Client struct {
	base       *url.URL
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoffs   []time.Duration
	cache      *ccache.Cache[listing.Page]
	ttl        time.Duration
	events     *otel.Logger

	genMu sync.Mutex
	gens  map[string]uint64 // bumped by every purge of a collection
}

// New creates a client for the server at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	c := &Client{
		base:       base,
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		backoffs:   []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second, 4 * time.Second},
		ttl:        opts.CacheTTL,
		events:     opts.Events,
		gens:       make(map[string]uint64),
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 500
		}
		c.cache = ccache.New(ccache.Configure[listing.Page]().MaxSize(size))
	}
	return c, nil
}

// Close stops the cache's background worker.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Stop()
	}
}

// Collection returns the remote collection with the given name.
func (c *Client) Collection(name string) *Collection {
	return &Collection{c: c, name: name}
}

// Collections returns a listing.Collection per name.
func (c *Client) Collections(names ...string) map[string]listing.Collection {
	out := make(map[string]listing.Collection, len(names))
	for _, n := range names {
		out[n] = c.Collection(n)
	}
	return out
}

// Ping checks the server's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz")
	return err
}

// Stats fetches per-collection row counts.
func (c *Client) Stats(ctx context.Context) ([]store.CollectionStats, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/stats")
	if err != nil {
		return nil, err
	}
	var out []store.CollectionStats
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return out, nil
}

// Collection serves one remote collection as a listing.Collection.
type Collection struct {
	c    *Client
	name string
}

// Name returns the collection name.
func (rc *Collection) Name() string { return rc.name }

// FetchPage reads one page, from the cache when a fresh copy is there.
func (rc *Collection) FetchPage(ctx context.Context, q listing.Query) (listing.Page, error) {
	key := rc.name + "|" + q.Key()
	if rc.c.cache != nil {
		if item := rc.c.cache.Get(key); item != nil && !item.Expired() {
			return copyPage(item.Value()), nil
		}
	}

	gen := rc.c.generation(rc.name)
	path := "/api/v1/" + url.PathEscape(rc.name) + "?" + EncodeQuery(q).Encode()
	body, err := rc.c.do(ctx, http.MethodGet, path)
	if err != nil {
		return listing.Page{}, err
	}
	var resp PageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return listing.Page{}, fmt.Errorf("parse response: %w", err)
	}

	pg := resp.ToPage()
	if rc.c.cache != nil {
		rc.c.storePage(rc.name, gen, key, pg)
	}
	return pg, nil
}

// ToggleStatus flips the item's active flag on the server.
func (rc *Collection) ToggleStatus(ctx context.Context, id string) (*bool, error) {
	body, err := rc.c.do(ctx, http.MethodPatch, rc.itemPath(id)+"/status")
	rc.purge()
	if err != nil {
		return nil, err
	}
	var resp StatusResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}
	return resp.IsActive, nil
}

// DeleteItem deletes the item on the server.
func (rc *Collection) DeleteItem(ctx context.Context, id string) error {
	_, err := rc.c.do(ctx, http.MethodDelete, rc.itemPath(id))
	rc.purge()
	return err
}

func (rc *Collection) itemPath(id string) string {
	return "/api/v1/" + url.PathEscape(rc.name) + "/" + url.PathEscape(id)
}

// purge drops every cached page of the collection. Mutations can shift
// items across pages, so invalidating one key isn't enough.
func (rc *Collection) purge() {
	if rc.c.cache == nil {
		return
	}
	rc.c.genMu.Lock()
	defer rc.c.genMu.Unlock()
	rc.c.gens[rc.name]++
	rc.c.cache.DeletePrefix(rc.name + "|")
}

func (c *Client) generation(name string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gens[name]
}

// storePage caches pg unless the collection was purged after the read
// started; such a page may predate the mutation.
func (c *Client) storePage(name string, gen uint64, key string, pg listing.Page) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.gens[name] != gen {
		return
	}
	c.cache.Set(key, copyPage(pg), c.ttl)
}

func copyPage(pg listing.Page) listing.Page {
	items := make([]listing.Item, len(pg.Items))
	copy(items, pg.Items)
	pg.Items = items
	return pg
}

// do sends one request. GETs are retried on network errors, 429 and 5xx
// with backoff, honoring Retry-After. Mutations are sent once.
func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.events.Emit(otel.Event{
				Level: otel.LevelWarn, Kind: otel.KindClientRetry, Comp: comp,
				Query: path, Count: attempt, Err: lastErr.Error(),
			})
		}

		req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < retries {
				if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
					return nil, err
				}
			}
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			if attempt < retries {
				if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
					return nil, err
				}
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}

		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = apiErr
			if attempt < retries {
				delay := c.backoff(attempt)
				if resp.StatusCode == http.StatusTooManyRequests {
					if ra := resp.Header.Get("Retry-After"); ra != "" {
						if seconds, parseErr := strconv.Atoi(ra); parseErr == nil && seconds > 0 {
							delay = min(time.Duration(seconds)*time.Second, 30*time.Second)
						}
					}
				}
				if err := c.sleep(ctx, delay); err != nil {
					return nil, err
				}
			}
			continue
		}

		return nil, apiErr
	}

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) || retries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", retries, lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < len(c.backoffs) {
		return c.backoffs[attempt]
	}
	return c.backoffs[len(c.backoffs)-1]
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// errorMessage pulls "error" out of a JSON error body, falling back to
// the raw text.
func errorMessage(body []byte) string {
	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(body))
}
