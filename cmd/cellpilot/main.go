package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/cellpilot/cellpilot/client"
	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/display"
	"github.com/cellpilot/cellpilot/observability"
	"github.com/cellpilot/cellpilot/pilot"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to pilot config JSON file")
		prompt     = flag.String("prompt", "", "Prompt to send to the agent (required)")
		endpoint   = flag.String("endpoint", "", "Agent runtime base URL (overrides config)")
		model      = flag.String("model", "", "Model name (overrides config)")
		newConv    = flag.Bool("new", false, "Start a fresh conversation")
		verbose    = flag.Bool("verbose", false, "Show thinking output and verbose logging")
		eventLog   = flag.String("event-log", "", "Append JSON event logs to this file")
	)
	flag.Parse()

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "Usage: cellpilot -prompt <text> [-config <file>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := pilot.DefaultConfig()
	if *configFile != "" {
		loaded, err := pilot.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *model != "" {
		cfg.Model = *model
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	var observer observability.Observer = observability.NewSlogObserver(logger)
	if *eventLog != "" {
		f, err := os.OpenFile(*eventLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open event log: %v", err)
		}
		defer f.Close()
		fileLogger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		observer = observability.NewMultiObserver(observer, observability.NewSlogObserver(fileLogger))
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to resolve working directory: %v", err)
	}

	sink := display.NewTerminal(os.Stdout, *verbose)
	defer sink.Close()

	created, err := pilot.EnsureSettings(cwd)
	if err != nil {
		log.Fatalf("Failed to write settings file: %v", err)
	}
	pilot.SecurityNotice(sink, created)

	transport := client.NewConnectTransport(http.DefaultClient, cfg.Endpoint)
	conversation := client.New(transport, client.WithObserver(observer))

	p, err := pilot.New(conversation, &replHost{out: os.Stdout},
		pilot.WithConfig(cfg),
		pilot.WithSink(sink),
		pilot.WithObserver(observer),
		pilot.WithTerminalHost(true),
	)
	if err != nil {
		log.Fatalf("Failed to create pilot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		p.Interrupt()
	}()

	opts := pilot.RunOptions{Verbose: *verbose}
	if *newConv {
		err = p.RunNew(ctx, *prompt, opts)
	} else {
		err = p.Run(ctx, *prompt, opts)
	}
	if err != nil {
		log.Fatalf("Turn failed: %v", err)
	}
}

// replHost is a minimal host session for driving the pilot from a plain
// process: staged cells are printed for the user to run by hand, and
// there is no history or namespace to read.
type replHost struct {
	out *os.File
}

func (h *replHost) StageCell(code string, replace bool) error {
	_, err := fmt.Fprintf(h.out, "\n--- staged cell ---\n%s\n-------------------\n", code)
	return err
}

func (h *replHost) HistoryRange(start, stop int) ([]protocol.HistoryEntry, error) {
	return nil, nil
}

func (h *replHost) Variables() map[string]any {
	return map[string]any{}
}
