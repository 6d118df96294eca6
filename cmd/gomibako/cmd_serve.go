package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/capture"
	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/logging"
)

func serveCmd() {
	cfg := config.Load()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	hostFlag := fs.String("host", "127.0.0.1", "Interface to listen on")
	portFlag := fs.Int("port", 8000, "Port to listen on")
	ttlFlag := fs.Duration("session-ttl", time.Hour, "Drop sessions idle for longer than this (0 keeps them)")
	historyFlag := fs.Int("history", capture.DefaultHistorySize, "Requests replayed to a new subscriber")
	devFlag := fs.Bool("dev", false, "Relax security headers for local development")
	logLevelFlag := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gomibako serve [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Run a local capture server. Point webhooks at /g/{key} and\n")
		fmt.Fprintf(os.Stderr, "inspect them with 'gomibako <key>'.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gomibako serve\n")
		fmt.Fprintf(os.Stderr, "  gomibako serve --host 0.0.0.0 --port 9000 --session-ttl 24h\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Level: *logLevelFlag, Console: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := net.JoinHostPort(*hostFlag, strconv.Itoa(*portFlag))
	if err := serve(ctx, addr, *ttlFlag, *historyFlag, *devFlag, logger); err != nil {
		logging.LogError(logger, err, "capture server failed")
		os.Exit(1)
	}
}

// serve runs the capture server on addr until ctx is done.
func serve(ctx context.Context, addr string, ttl time.Duration, history int, dev bool, logger *zap.Logger) error {
	repo := capture.NewRepository(
		capture.WithHistorySize(history),
		capture.WithRepositoryLogger(logger.Named("repo")),
	)
	if ttl > 0 {
		go repo.RunExpiry(ctx, ttl, min(ttl, time.Minute))
	}

	srv := capture.NewServer(repo,
		capture.WithLogger(logger.Named("http")),
		capture.WithDevelopment(dev),
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("capture server listening", zap.String("addr", "http://"+addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
