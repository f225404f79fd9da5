package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	mode := fs.String("backend", "", "Override the configured backend")
	asJSON := fs.Bool("json", false, "Output JSON")
	fs.Parse(os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b := openBackend(ctx, loadConfig(*mode))
	defer b.Close()

	stats, err := b.Stats(ctx)
	if err != nil {
		fatalf("stats: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(stats)
		return
	}

	fmt.Printf("Backend: %s\n\n", b.Mode)
	fmt.Printf("%-12s %8s %8s %8s\n", "Collection", "Total", "Active", "Inactive")
	var total, active int
	for _, st := range stats {
		fmt.Printf("%-12s %8d %8d %8d\n", st.Name, st.Total, st.Active, st.Total-st.Active)
		total += st.Total
		active += st.Active
	}
	fmt.Printf("%-12s %8d %8d %8d\n", "all", total, active, total-active)
}
