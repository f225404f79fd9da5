// Command listingd serves the property, post and user collections over
// HTTP so estatedesk can run in remote mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelbrown/estatedesk/internal/backend"
	"github.com/abelbrown/estatedesk/internal/config"
	"github.com/abelbrown/estatedesk/internal/logging"
	"github.com/abelbrown/estatedesk/internal/server"
	"github.com/abelbrown/estatedesk/internal/store"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Server.Addr, "Listen address")
	mode := flag.String("backend", cfg.Backend.Mode, "Backend: sqlite or postgres")
	seed := flag.Int("seed", 0, "Insert this many demo rows per collection on startup")
	noColor := flag.Bool("no-color", false, "Disable colored console logs")
	flag.Parse()

	cfg.Backend.Mode = *mode
	if cfg.Backend.Mode == config.BackendRemote {
		fmt.Fprintln(os.Stderr, "listingd needs a database backend, not remote")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.NewServerLogger(logging.ServerOptions{
		Level:   cfg.Logging.Level,
		App:     cfg.Server.AppName,
		Output:  os.Stdout,
		NoColor: *noColor,
		Fluent: logging.FluentConfig{
			Enabled: cfg.Logging.FluentBit.Enabled,
			Host:    cfg.Logging.FluentBit.Host,
			Port:    cfg.Logging.FluentBit.Port,
			Tag:     cfg.Logging.FluentBit.Tag,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		logger.Error("Failed to open backend", "mode", cfg.Backend.Mode, "error", err)
		os.Exit(1)
	}
	defer b.Close()
	logger.Info("Backend opened", "mode", b.Mode)

	if *seed > 0 {
		seeder, _ := b.Seeder()
		n, err := seeder.Insert(ctx, store.Demo(*seed, time.Now()))
		if err != nil {
			logger.Error("Failed to seed demo data", "error", err)
			os.Exit(1)
		}
		logger.Info("Seeded demo data", "rows", n)
	}

	srv := server.NewServer(*addr, b, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
