package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/chat"
	"github.com/c360studio/reqalign/config"
	"github.com/c360studio/reqalign/events"
	"github.com/c360studio/reqalign/ingest"
	"github.com/c360studio/reqalign/llm"
	"github.com/c360studio/reqalign/server"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reqalign HTTP server",
		Long: `Starts the HTTP API: coverage analysis, document uploads, the chat
assistant, and (when configured) watched document libraries and NATS
event publishing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, addrOverride string) error {
	logger := slog.Default()

	loader := config.NewLoader(logger)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addrOverride != "" {
		cfg.Server.Addr = addrOverride
	}

	registry := cfg.Registry()
	client := llm.NewClient(registry,
		llm.WithLogger(logger.With("component", "llm")),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
	)

	orchestrator := chat.NewOrchestrator(chat.NewMemoryStore(), client, chat.Config{
		HistoryWindow: cfg.Chat.HistoryWindow,
		MaxTokens:     cfg.Chat.MaxTokens,
	}, logger.With("component", "chat"))

	feedback := analysis.NewFeedbackGenerator(client, logger.With("component", "feedback"))

	publisher, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger.With("component", "events"))
	if err != nil {
		return fmt.Errorf("connect event publisher: %w", err)
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var requirements, design *ingest.Library
	if cfg.Ingest.RequirementsDir != "" && cfg.Ingest.DesignDir != "" {
		requirements, err = watchLibrary(ctx, cfg.Ingest.RequirementsDir, cfg.Ingest, logger)
		if err != nil {
			return err
		}
		design, err = watchLibrary(ctx, cfg.Ingest.DesignDir, cfg.Ingest, logger)
		if err != nil {
			return err
		}
	}

	srv := server.New(server.Options{
		Threshold:    cfg.Analysis.Threshold,
		Feedback:     feedback,
		Orchestrator: orchestrator,
		Requirements: requirements,
		Design:       design,
		Publisher:    publisher,
		Logger:       logger.With("component", "server"),
	})

	mux := http.NewServeMux()
	srv.RegisterHTTPHandlers("api", mux)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// watchLibrary scans a document directory and keeps it fresh in the
// background until ctx is cancelled.
func watchLibrary(ctx context.Context, dir string, cfg config.IngestConfig, logger *slog.Logger) (*ingest.Library, error) {
	library := ingest.NewLibrary(dir, cfg.Include)

	watcher, err := ingest.NewWatcher(library, cfg.DebounceDelay, logger.With("component", "ingest", "dir", dir))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("Document watcher stopped", "dir", dir, "error", err)
		}
	}()

	return library, nil
}
