package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/app"
	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/inspect"
	"github.com/sadopc/gomibako/internal/logging"
	"github.com/sadopc/gomibako/internal/recent"
	"github.com/sadopc/gomibako/internal/stream"
	"github.com/sadopc/gomibako/pkg/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "tail":
			tailCmd()
			return
		case "serve":
			serveCmd()
			return
		case "new":
			newCmd()
			return
		case "sessions":
			sessionsCmd()
			return
		case "completion":
			completionCmd()
			return
		case "version":
			fmt.Printf("gomibako %s\n", version.String())
			return
		case "help":
			printHelp()
			return
		}
	}
	tuiCmd()
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `gomibako - live request inspector for the terminal

Usage:
  gomibako [flags] <key|inspect-url>   Inspect a session interactively
  gomibako <command> [args] [flags]    Run a subcommand

Commands:
  tail        Print captured requests to stdout as they arrive
  serve       Run a local capture server
  new         Create a session on the server
  sessions    List recently inspected sessions
  completion  Generate shell completion scripts (bash, zsh, fish)
  version     Print version information
  help        Show this help message

Inspect Flags:
  --server <url>        Server used for bare keys (default from config)
  --theme <name>        Color theme
  --transport <name>    Feed transport: sse or websocket
  --version             Print version and exit

Flags go before the key. Run 'gomibako <command> --help' for more
information about a command.
`)
}

// feedFlags are shared by every command that subscribes to a feed.
type feedFlags struct {
	server    *string
	transport *string
}

func addFeedFlags(fs *flag.FlagSet, cfg config.Config) feedFlags {
	return feedFlags{
		server:    fs.String("server", cfg.Server, "Server used for bare session keys"),
		transport: fs.String("transport", cfg.Transport, "Feed transport: sse or websocket"),
	}
}

func (f feedFlags) validate() error {
	switch stream.Transport(*f.transport) {
	case stream.TransportSSE, stream.TransportWebSocket:
		return nil
	}
	return fmt.Errorf("invalid transport %q (must be sse or websocket)", *f.transport)
}

// newInspector builds an Inspector subscribed through a stream Source.
func newInspector(origin, transport string, logger *zap.Logger) *inspect.Inspector {
	src := stream.New(origin,
		stream.WithTransport(stream.Transport(transport)),
		stream.WithLogger(logger.Named("stream")),
	)
	return inspect.New(src, inspect.WithLogger(logger.Named("inspect")))
}

// openRecent opens the recent-sessions store under the data dir.
func openRecent(cfg config.Config) (*recent.Store, error) {
	dir := config.ResolveDataDir(cfg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return recent.NewStore(filepath.Join(dir, "sessions.db"))
}

// exitTarget reports a bad or missing session target and exits 2.
func exitTarget(err error, usage func()) {
	fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
	if errors.Is(err, errMissingTarget) {
		usage()
	}
	os.Exit(2)
}

func tuiCmd() {
	cfg := config.Load()

	versionFlag := flag.Bool("version", false, "Print version and exit")
	themeFlag := flag.String("theme", cfg.Theme, "Color theme")
	feed := addFeedFlags(flag.CommandLine, cfg)
	flag.Usage = printHelp
	flag.Parse()

	if *versionFlag {
		fmt.Printf("gomibako %s\n", version.String())
		os.Exit(0)
	}
	if err := feed.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	origin, key, err := parseTarget(flag.Arg(0), *feed.server)
	if err != nil {
		exitTarget(err, printHelp)
	}
	cfg.Theme = *themeFlag
	cfg.Transport = *feed.transport
	os.Exit(runTUI(cfg, origin, key))
}

func runTUI(cfg config.Config, origin, key string) int {
	logger, err := logging.New(logging.Options{
		File:  config.ResolveLogFile(cfg),
		Level: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		logger = zap.NewNop()
	}
	defer logger.Sync()

	opts := []app.Option{app.WithLogger(logger.Named("app"))}
	store, err := openRecent(cfg)
	if err != nil {
		logger.Warn("recent sessions unavailable", zap.Error(err))
	} else {
		defer store.Close()
		opts = append(opts, app.WithRecent(store))
	}

	insp := newInspector(origin, cfg.Transport, logger)
	model := app.New(insp, key, origin, cfg, opts...)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	insp.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
