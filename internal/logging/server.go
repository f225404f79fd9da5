package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// FluentConfig points server logs at a Fluent Bit forward input.
type FluentConfig struct {
	Enabled bool
	Host    string
	Port    int
	Tag     string
}

// ServerOptions configures NewServerLogger.
type ServerOptions struct {
	Level   string
	App     string
	Output  io.Writer // console sink, usually os.Stdout
	NoColor bool
	Fluent  FluentConfig
}

// ParseLevel maps a config level name to slog. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewServerLogger builds the slog logger used by listingd: colored console
// output, plus Fluent Bit when enabled. The returned closer flushes the
// Fluent client and is safe to call when Fluent is off.
func NewServerLogger(opts ServerOptions) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)

	handlers := []slog.Handler{
		tint.NewHandler(opts.Output, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    opts.NoColor,
		}),
	}

	var closer io.Closer = nopCloser{}
	if opts.Fluent.Enabled {
		client, err := fluent.New(fluent.Config{
			FluentHost: opts.Fluent.Host,
			FluentPort: opts.Fluent.Port,
			Async:      true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create fluent logger: %w", err)
		}
		tag := opts.Fluent.Tag
		if tag == "" {
			tag = opts.App
		}
		handlers = append(handlers, NewFluentHandler(client, tag, level))
		closer = client
	}

	logger := slog.New(fanout(handlers))
	if opts.App != "" {
		logger = logger.With("app", opts.App)
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Poster is the part of *fluent.Fluent the handler needs.
type Poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler is a slog.Handler that posts each record to Fluent as a
// flat map with level, message and timestamp keys.
type FluentHandler struct {
	client   Poster
	tag      string
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

// NewFluentHandler returns a handler posting records at or above minLevel.
func NewFluentHandler(client Poster, tag string, minLevel slog.Level) *FluentHandler {
	return &FluentHandler{client: client, tag: tag, minLevel: minLevel}
}

func (h *FluentHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.minLevel
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, r.NumAttrs()+len(h.attrs)+3)
	for _, a := range h.attrs {
		addAttr(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(data, h.group, a)
		return true
	})
	data["level"] = r.Level.String()
	data["message"] = r.Message
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	data["timestamp"] = ts.UTC().Format(time.RFC3339Nano)

	return h.client.Post(h.tag, data)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	nh.group = name
	return &nh
}

func addAttr(data map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(data, key, ga)
		}
		return
	}
	switch a.Value.Kind() {
	case slog.KindTime:
		data[key] = a.Value.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindDuration:
		data[key] = a.Value.Duration().Milliseconds()
	default:
		v := a.Value.Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[key] = v
	}
}

// fanout sends every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
