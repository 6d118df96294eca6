package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/export/har"
	"github.com/sadopc/gomibako/internal/inspect"
	"github.com/sadopc/gomibako/internal/logging"
	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/internal/scripting"
	"github.com/sadopc/gomibako/internal/ui/theme"
	"github.com/sadopc/gomibako/internal/view"
)

func tailCmd() {
	cfg := config.Load()

	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	feed := addFeedFlags(fs, cfg)
	whereFlag := fs.String("where", "", "JavaScript predicate over req, e.g. 'req.method == \"POST\"'")
	harFlag := fs.String("har", "", "Write the printed requests as HAR on exit (.gz and .zst compress)")
	timeoutFlag := fs.Duration("where-timeout", scripting.DefaultTimeout, "Time limit for one --where evaluation")
	verboseFlag := fs.Bool("verbose", false, "Log feed events to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gomibako tail [flags] <key|inspect-url>\n\n")
		fmt.Fprintf(os.Stderr, "Print captured requests as they arrive, newest last.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gomibako tail abc123\n")
		fmt.Fprintf(os.Stderr, "  gomibako tail --where 'req.header(\"X-Signature\") != null' abc123\n")
		fmt.Fprintf(os.Stderr, "  gomibako tail --har hooks.har.gz https://bin.example.com/g/abc123/inspect\n")
		fmt.Fprintf(os.Stderr, "\nExit codes:\n")
		fmt.Fprintf(os.Stderr, "  0  Stopped by the user\n")
		fmt.Fprintf(os.Stderr, "  1  The feed failed or ended\n")
		fmt.Fprintf(os.Stderr, "  2  Invalid arguments\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	if err := feed.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	origin, key, err := parseTarget(fs.Arg(0), *feed.server)
	if err != nil {
		exitTarget(err, fs.Usage)
	}

	var filter *scripting.Filter
	if *whereFlag != "" {
		filter, err = scripting.NewEngine(*timeoutFlag).Compile(*whereFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --where: %v\n", err)
			os.Exit(2)
		}
	}

	level := "warn"
	if *verboseFlag {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Console: true})
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	insp := newInspector(origin, *feed.transport, logger)
	if err := insp.Start(ctx, key); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := view.DefaultOptions(view.AccessURL(origin, key))
	opts.Styles = theme.NewStyles(theme.Resolve(cfg.Theme))
	opts.Highlight = cfg.HighlightBody

	fmt.Fprintf(os.Stderr, "Waiting for requests at %s\n", opts.AccessURL)
	printed, feedErr := tail(ctx, os.Stdout, insp, filter, opts, logger)
	insp.Stop()

	if *harFlag != "" {
		if err := har.WriteFile(*harFlag, printed, origin); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing HAR: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d requests to %s\n", len(printed), *harFlag)
	}
	if feedErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", feedErr)
		os.Exit(1)
	}
}

// tail applies events from insp until ctx is done or the feed fails,
// printing each new record that passes filter. It returns the printed
// records in arrival order.
func tail(ctx context.Context, w io.Writer, insp *inspect.Inspector, filter *scripting.Filter, opts view.Options, logger *zap.Logger) ([]record.Request, error) {
	var printed []record.Request
	for {
		select {
		case <-ctx.Done():
			return printed, nil
		case <-insp.Done():
			return printed, nil
		case ev := <-insp.Events():
			if !insp.Apply(ev) {
				continue
			}
			switch ev.Kind {
			case inspect.EventOpen:
				logger.Debug("feed open", zap.String("key", insp.Key()))
			case inspect.EventError:
				return printed, ev.Err
			case inspect.EventRecord:
				if filter != nil {
					ok, err := filter.Match(ev.Record)
					if err != nil {
						logger.Warn("--where failed", zap.String("request", ev.Record.Line()), zap.Error(err))
						continue
					}
					if !ok {
						continue
					}
				}
				fmt.Fprintf(w, "%s\n\n", view.RenderUnit(ev.Record, opts))
				printed = append(printed, ev.Record)
			}
		}
	}
}
