package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/estatedesk/internal/backend"
	"github.com/abelbrown/estatedesk/internal/config"
)

// loadConfig reads config and applies a -backend override, or exits.
func loadConfig(mode string) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatalf("config: %v", err)
	}
	if mode != "" {
		cfg.Backend.Mode = mode
		if err := cfg.Validate(); err != nil {
			fatalf("config: %v", err)
		}
	}
	return cfg
}

// openBackend opens the configured backend or exits.
func openBackend(ctx context.Context, cfg *config.Config) *backend.Backend {
	b, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		fatalf("backend: %v", err)
	}
	return b
}

// eventLogPath returns today's event log, or the newest one when today's
// doesn't exist yet.
func eventLogPath() string {
	dir := config.DataDir()
	today := filepath.Join(dir, fmt.Sprintf("events-%s.jsonl", time.Now().Format("2006-01-02")))
	if _, err := os.Stat(today); err == nil {
		return today
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "events-*.jsonl"))
	if len(matches) == 0 {
		return today
	}
	return matches[len(matches)-1] // names sort by date
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
