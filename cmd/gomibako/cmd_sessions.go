package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/recent"
	"github.com/sadopc/gomibako/internal/view"
)

func sessionsCmd() {
	cfg := config.Load()

	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	limitFlag := fs.Int("limit", 20, "Maximum sessions to list")
	clearFlag := fs.Bool("clear", false, "Forget all recent sessions")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gomibako sessions [flags]\n\n")
		fmt.Fprintf(os.Stderr, "List recently inspected sessions, most recent first.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	store, err := openRecent(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *clearFlag {
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Recent sessions cleared")
		return
	}

	sessions, err := store.List(*limitFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printSessions(os.Stdout, sessions, time.Now())
}

func printSessions(w io.Writer, sessions []recent.Session, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No recent sessions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tOPENED\tLAST\tURL")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			s.Key,
			s.Opens,
			humanize.RelTime(s.LastOpened, now, "ago", "from now"),
			view.AccessURL(s.Server, s.Key),
		)
	}
	tw.Flush()
}
