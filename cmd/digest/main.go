// cmd/digest/main.go
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

	"github.com/spf13/pflag"

	"starred-digest/internal/api"
	"starred-digest/internal/config"
	"starred-digest/internal/digest"
	"starred-digest/internal/github"
	"starred-digest/internal/render"
	"starred-digest/internal/report"
	"starred-digest/internal/state"
	"starred-digest/internal/summary"
	"starred-digest/internal/syncer"
)

const usage = `Usage: digest <command> [flags]

Commands:
  run     fetch new commits of starred repositories and write the daily digest
  serve   serve the stored digests and feeds over HTTP

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Parse command and flags
	fs := config.NewFlagSet("digest")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if len(args) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	command := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// 3. Load configuration
	cfg, err := config.LoadConfig(fs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)

	// 4. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "run":
		if err := cfg.ValidateRun(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Info("Configuration loaded successfully")
		return runDigest(ctx, cfg, logger)
	case "serve":
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Info("Configuration loaded successfully")
		return serve(ctx, cfg, logger)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runDigest(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runner, closeFn, err := newRunner(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.SyncInterval <= 0 {
		return runner.RunOnce(ctx)
	}
	runner.Start(ctx)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	archive := report.NewArchive(cfg.ReportsDir)
	router := api.NewRouter(archive, api.FeedConfig{
		Days: cfg.FeedDays,
		FeedOptions: render.FeedOptions{
			Title:       cfg.FeedTitle,
			Link:        cfg.FeedLink,
			Description: "New commits in starred repositories",
		},
	}, logger)

	// Keep the archive fresh while serving when an interval and a token are configured.
	if cfg.SyncInterval > 0 && cfg.GithubToken != "" {
		runner, closeFn, err := newRunner(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer closeFn()
		go runner.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received. Exiting.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRunner wires the digest pipeline. The returned function releases the state
// backend and the summarizer.
func newRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger, printDigest bool) (*digest.Runner, func(), error) {
	backend, err := state.OpenBackend(ctx, state.BackendConfig{
		Kind:  state.Kind(cfg.StateBackend),
		Path:  cfg.StatePath,
		DBURL: cfg.DBURL,
		Redis: state.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state backend: %w", err)
	}
	store := state.NewStore(backend, cfg.CacheRetention, logger)
	logger.Info("State backend ready", "backend", cfg.StateBackend)

	var summarizer summary.Summarizer = summary.Nop{}
	closeSummarizer := func() error { return nil }
	if cfg.SummaryProvider == "vertex" {
		v, err := summary.NewVertex(ctx, summary.VertexConfig{
			Project:  cfg.VertexProject,
			Location: cfg.VertexLocation,
			Model:    cfg.VertexModel,
		})
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		summarizer = v
		closeSummarizer = v.Close
	}

	ghClient := github.NewClient(cfg.GithubToken, logger, github.Options{
		RateLimitPolicy: github.RateLimitPolicy(cfg.RateLimitPolicy),
		ExcludeBots:     cfg.ExcludeBots,
		DefaultLookback: cfg.DefaultLookback,
	})
	repoSyncer := syncer.NewSyncer(ghClient, logger, syncer.Options{
		MaxConsecutiveEmpty: cfg.EarlyStopThreshold,
		ActivityWindow:      cfg.CacheRetention,
		Pause:               cfg.RequestPause,
	})

	var terminal *render.Terminal
	if printDigest {
		terminal = render.NewTerminal(os.Stdout, render.ColorEnabled(os.Stdout, os.Getenv))
	}

	runner := digest.NewRunner(ghClient, repoSyncer, store, report.NewArchive(cfg.ReportsDir), summarizer, terminal, logger, digest.Options{
		RepoLimit:          cfg.RepoLimit,
		Sort:               cfg.RepoSort,
		Direction:          cfg.RepoDirection,
		NoiseTopic:         cfg.NoiseTopic,
		SummaryConcurrency: cfg.SummaryConcurrency,
		GithubOutput:       githubOutput(cfg),
		Interval:           cfg.SyncInterval,
	})

	closeFn := func() {
		if err := closeSummarizer(); err != nil {
			logger.Warn("Failed to close summarizer", "error", err)
		}
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close state backend", "error", err)
		}
	}
	return runner, closeFn, nil
}

// githubOutput returns the step output file when running inside GitHub Actions.
func githubOutput(cfg *config.Config) string {
	if !cfg.GithubActions {
		return ""
	}
	return cfg.GithubOutput
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
