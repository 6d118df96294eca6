package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/view"
)

func newCmd() {
	cfg := config.Load()

	fs := flag.NewFlagSet("new", flag.ExitOnError)
	serverFlag := fs.String("server", cfg.Server, "Server to create the session on")
	quietFlag := fs.Bool("quiet", false, "Print only the session key")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gomibako new [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Create a session and print where to send requests.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	origin := strings.TrimRight(*serverFlag, "/")
	key, err := newSession(ctx, http.DefaultClient, origin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *quietFlag {
		fmt.Println(key)
		return
	}
	fmt.Printf("Session:  %s\n", key)
	fmt.Printf("Send to:  %s\n", view.AccessURL(origin, key))
	fmt.Printf("Inspect:  gomibako --server %s %s\n", origin, key)
}

// newSession asks the server at origin for a fresh session key.
func newSession(ctx context.Context, client *http.Client, origin string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, origin+"/g/-/new?format=text", nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("creating session: server answered %s", resp.Status)
	}
	key := strings.TrimSpace(string(body))
	if key == "" || strings.ContainsAny(key, "/ \n") {
		return "", errors.New("creating session: server returned no key")
	}
	return key, nil
}
