package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/estatedesk/internal/store"
)

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	n := fs.Int("n", 50, "Rows per collection")
	mode := fs.String("backend", "", "Override the configured backend (sqlite or postgres)")
	fs.Parse(os.Args[1:])

	if *n < 1 {
		fatalf("-n must be positive")
	}

	ctx := context.Background()
	b := openBackend(ctx, loadConfig(*mode))
	defer b.Close()

	seeder, ok := b.Seeder()
	if !ok {
		fatalf("the %s backend can't be seeded; seed the server's database instead", b.Mode)
	}

	start := time.Now()
	written, err := seeder.Insert(ctx, store.Demo(*n, start))
	if err != nil {
		fatalf("seed: %v", err)
	}
	fmt.Printf("Inserted %d rows into %s in %s\n", written, b.Mode, time.Since(start).Round(time.Millisecond))
}
