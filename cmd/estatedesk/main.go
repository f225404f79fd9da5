// Command estatedesk is the terminal admin console for property listings,
// blog posts and users.
//
// Usage:
//
//	estatedesk                                  open the start screen
//	estatedesk -screen users -q meera           deep link into a search
//	estatedesk -screen properties -f city=Pune -page 2
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/estatedesk/internal/backend"
	"github.com/abelbrown/estatedesk/internal/config"
	"github.com/abelbrown/estatedesk/internal/coord"
	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/logging"
	"github.com/abelbrown/estatedesk/internal/otel"
	"github.com/abelbrown/estatedesk/internal/ui"
)

// statsInterval is how often tab counts are refreshed.
const statsInterval = 30 * time.Second

// paramFlags collects repeated -f name=value filters.
type paramFlags map[string]string

func (p paramFlags) String() string {
	var parts []string
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p paramFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("filter %q is not name=value", s)
	}
	p[name] = value
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	filters := paramFlags{}
	mode := flag.String("backend", cfg.Backend.Mode, "Backend: sqlite, postgres or remote")
	screen := flag.String("screen", cfg.UI.StartScreen, "Screen to open: properties, posts or users")
	term := flag.String("q", "", "Initial search term")
	page := flag.Int("page", 0, "Initial page")
	flag.Var(filters, "f", "Initial filter as name=value (repeatable)")
	flag.Parse()

	cfg.Backend.Mode = *mode
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	dataDir := config.DataDir()
	if err := logging.Init(dataDir, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	events, eventFile := openEventLog(dataDir)
	defer func() {
		events.Close()
		if eventFile != nil {
			eventFile.Close()
		}
	}()
	journal := otel.NewJournal(otel.DefaultJournalDepth)
	events.Attach(journal)
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: cfg.Backend.Mode})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := backend.Open(ctx, cfg, events)
	if err != nil {
		logging.Error("Failed to open backend", "mode", cfg.Backend.Mode, "error", err)
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()
	logging.Info("Backend opened", "mode", b.Mode)

	seed := map[string]string(filters)
	if *term != "" {
		seed[listing.ParamSearch] = *term
	}
	if *page > 0 {
		seed[listing.ParamPage] = strconv.Itoa(*page)
	}

	app, err := ui.NewApp(ui.DefaultScreens(cfg.UI.PageSize), b.Collections(), ui.AppOptions{
		Listing: listing.Options{
			SearchDelay: cfg.SearchDelay(),
			Events:      events,
			Context:     ctx,
		},
		Journal: journal,
		Start:   *screen,
		Seed:    seed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ui: %v\n", err)
		os.Exit(1)
	}

	program := tea.NewProgram(app, tea.WithAltScreen())

	coordinator := coord.New(coord.Config{
		RefreshEvery: cfg.RefreshInterval(),
		StatsEvery:   statsInterval,
	}, b)
	coordinator.Start(ctx, program)

	logging.Info("Starting UI", "screen", *screen)
	if _, err := program.Run(); err != nil {
		logging.Error("Application error", "error", err)
	}

	// Graceful shutdown
	cancel()
	coordinator.Wait()
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})
	logging.Info("estatedesk exiting normally")
}

// openEventLog opens dataDir/events-DATE.jsonl, falling back to a null
// logger when the file can't be created.
func openEventLog(dataDir string) (*otel.Logger, *os.File) {
	name := fmt.Sprintf("events-%s.jsonl", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dataDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("Event log disabled", "error", err)
		return otel.NewNullLogger(), nil
	}
	return otel.NewLogger(f), f
}
