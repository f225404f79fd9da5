// Command deskctl is the maintenance CLI for estatedesk.
//
// Usage:
//
//	deskctl                  Show help
//	deskctl seed -n 50       Insert demo rows
//	deskctl stats            Row counts per collection
//	deskctl events           JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `deskctl - estatedesk maintenance CLI

Usage:
  deskctl <command> [flags]

Commands:
  seed        Insert demo properties, posts and users
  stats       Row counts per collection
  events      JSONL event log viewer

Environment:
  ESTATEDESK_HOME      Data directory (default: ~/.estatedesk)
  ESTATEDESK_BACKEND   sqlite, postgres or remote
  DATABASE_URL         Postgres connection string
  ESTATEDESK_API_URL   listingd base URL for remote mode

Run 'deskctl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "seed":
		runSeed()
	case "stats":
		runStats()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "deskctl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
