// internal/digest/runner.go
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	custom_errors "starred-digest/internal/errors"
	"starred-digest/internal/model"
	"starred-digest/internal/render"
	"starred-digest/internal/report"
	"starred-digest/internal/summary"
	"starred-digest/internal/syncer"
)

// Source discovers starred repositories and reports the API quota.
type Source interface {
	ListRepos(ctx context.Context, exclude map[string]struct{}, limit int, sort, direction string) ([]model.RepoRef, error)
	LogRateLimit(ctx context.Context)
}

// Fetcher runs one sync pass over a repository list.
type Fetcher interface {
	Run(ctx context.Context, repos []model.RepoRef, markers syncer.MarkerStore) (syncer.Result, error)
}

// StateStore is the marker store the runner loads before and saves after a pass.
type StateStore interface {
	syncer.MarkerStore
	Load(ctx context.Context) error
	Save(ctx context.Context) error
}

// Options configure a Runner.
type Options struct {
	RepoLimit          int
	Sort               string
	Direction          string
	NoiseTopic         string
	SummaryConcurrency int
	// GithubOutput is the file receiving step outputs when running in GitHub Actions.
	GithubOutput string
	// Interval repeats runs in Start. Zero runs once.
	Interval time.Duration
}

// Runner produces the daily digest: discovery, sync, summaries, report and state.
type Runner struct {
	source     Source
	fetcher    Fetcher
	store      StateStore
	archive    *report.Archive
	summarizer summary.Summarizer
	terminal   *render.Terminal
	logger     *slog.Logger
	opts       Options
	now        func() time.Time
}

// NewRunner creates a Runner. A nil summarizer leaves summaries empty; a nil terminal
// prints nothing.
func NewRunner(source Source, fetcher Fetcher, store StateStore, archive *report.Archive, summarizer summary.Summarizer, terminal *render.Terminal, logger *slog.Logger, opts Options) *Runner {
	if summarizer == nil {
		summarizer = summary.Nop{}
	}
	return &Runner{
		source:     source,
		fetcher:    fetcher,
		store:      store,
		archive:    archive,
		summarizer: summarizer,
		terminal:   terminal,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Start runs immediately and then on every tick of the configured interval until ctx
// is done. Failed runs are logged.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("Starting digest runner", "interval", r.opts.Interval.String())
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	r.runLogged(ctx) // Initial run

	for {
		select {
		case <-ticker.C:
			r.runLogged(ctx)
		case <-ctx.Done():
			r.logger.Info("Digest runner shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	if err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Digest run failed", "error", err)
	}
}

// RunOnce performs one complete digest run. When the sync pass stops on a rate limit
// the partial report and the state are still saved and the rate limit error is returned.
func (r *Runner) RunOnce(ctx context.Context) error {
	logger := r.logger.With("run_id", uuid.NewString())
	start := r.now()
	day := start.Format(report.DateLayout)
	logger.Info("Starting digest run", "date", day)

	r.source.LogRateLimit(ctx)

	if err := r.store.Load(ctx); err != nil {
		return err
	}

	prior, err := r.archive.Load(day)
	switch {
	case errors.Is(err, report.ErrReportNotFound):
		prior = report.NewReport(0, nil, time.Time{})
	case err != nil:
		logger.Warn("Failed to read today's report, starting a new one", "date", day, "error", err)
		prior = report.NewReport(0, nil, time.Time{})
	default:
		logger.Info("Extending today's report", "date", day, "repos", len(prior.Repos))
	}

	repos, err := r.source.ListRepos(ctx, report.RepoNames(prior), r.opts.RepoLimit, r.opts.Sort, r.opts.Direction)
	if err != nil {
		return fmt.Errorf("list starred repositories: %w", err)
	}
	logger.Info("Discovered starred repositories", "count", len(repos))

	res, syncErr := r.fetcher.Run(ctx, repos, r.store)
	var rle *custom_errors.RateLimitError
	if syncErr != nil && !errors.As(syncErr, &rle) {
		return syncErr
	}

	refs := make([]model.RepoRef, 0, len(res.Deltas))
	acts := make([]model.RepoActivity, 0, len(res.Deltas))
	for _, d := range res.Deltas {
		refs = append(refs, d.Repo)
		acts = append(acts, report.Build(d.Repo, d.Commits))
	}
	if err := summary.Fill(ctx, r.summarizer, refs, acts, r.opts.SummaryConcurrency, logger); err != nil {
		return err
	}

	merged := report.Merge(prior, report.NewReport(res.Considered, acts, r.now()))
	jsonPath, mdPath, err := r.archive.Save(day, merged, render.Markdown(merged, r.opts.NoiseTopic))
	if err != nil {
		return err
	}
	logger.Info("Saved report",
		"json", jsonPath,
		"markdown", mdPath,
		"active_repos", merged.ActiveReposCount,
		"commits", merged.TotalCommitsCount,
	)

	if r.terminal != nil {
		if err := r.terminal.Print(merged, r.opts.NoiseTopic); err != nil {
			logger.Warn("Failed to print digest", "error", err)
		}
	}

	if err := writeGithubOutput(r.opts.GithubOutput, mdPath, jsonPath); err != nil {
		return err
	}

	if err := r.store.Save(ctx); err != nil {
		return err
	}

	logger.Info("Digest run finished", "duration", r.now().Sub(start).String())
	return syncErr
}

// writeGithubOutput appends the report paths as step outputs. An empty path is a no-op.
func writeGithubOutput(path, reportFile, reportJSONFile string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open GITHUB_OUTPUT: %w", err)
	}
	if _, err := fmt.Fprintf(f, "report_file=%s\nreport_json_file=%s\n", reportFile, reportJSONFile); err != nil {
		f.Close()
		return fmt.Errorf("write GITHUB_OUTPUT: %w", err)
	}
	return f.Close()
}
