// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	custom_errors "starred-digest/internal/errors"
	"starred-digest/internal/model"
)

// DefaultMaxConsecutiveEmpty is the early-stop threshold used when none is configured.
const DefaultMaxConsecutiveEmpty = 10

// CommitSource fetches the new commits of one repository.
type CommitSource interface {
	FetchCommitDelta(ctx context.Context, repo model.RepoRef, marker time.Time) (model.CommitDelta, error)
}

// MarkerStore is the part of the state store the syncer reads and writes.
type MarkerStore interface {
	Get(repoID string) (time.Time, bool)
	Set(repoID string, t time.Time)
}

// Options tune a sync pass.
type Options struct {
	// MaxConsecutiveEmpty stops the pass after that many empty deltas in a row.
	// Zero or less disables the early stop.
	MaxConsecutiveEmpty int
	// ActivityWindow skips repositories last pushed before now - ActivityWindow
	// without a request. Zero disables the pre-filter.
	ActivityWindow time.Duration
	// Pause is slept between two fetches.
	Pause time.Duration
}

// RepoDelta pairs a repository with the commits fetched for it.
type RepoDelta struct {
	Repo    model.RepoRef
	Commits []model.CommitRecord
}

// Result is the outcome of one sync pass.
type Result struct {
	Deltas       []RepoDelta
	Considered   int // repositories looked at, fetched or skipped
	Skipped      int // stale repositories never requested
	Failed       int
	StoppedEarly bool
}

// Syncer walks a recency-sorted repository list and fetches commit deltas one
// repository at a time.
type Syncer struct {
	source CommitSource
	logger *slog.Logger
	opts   Options
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(source CommitSource, logger *slog.Logger, opts Options) *Syncer {
	return &Syncer{
		source: source,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Run fetches the deltas of repos in order and advances the markers. A rate limit
// error ends the pass and is returned together with the deltas collected so far.
// Any other per-repository failure is logged and the repository skipped.
func (s *Syncer) Run(ctx context.Context, repos []model.RepoRef, markers MarkerStore) (Result, error) {
	var res Result
	s.logger.Info("Starting sync pass", "repos", len(repos), "max_consecutive_empty", s.opts.MaxConsecutiveEmpty)

	var cutoff time.Time
	if s.opts.ActivityWindow > 0 {
		cutoff = s.now().Add(-s.opts.ActivityWindow)
	}

	empty := 0
	fetched := 0
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Considered++
		logger := s.logger.With("repo", repo.ID)

		commits, err := s.syncRepo(ctx, logger, repo, markers, cutoff, &res, &fetched)
		var rle *custom_errors.RateLimitError
		switch {
		case errors.As(err, &rle):
			logger.Error("Rate limit reached, stopping sync pass", "reset", rle.Reset, "remaining", rle.Remaining)
			return res, err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return res, err
		case err != nil:
			res.Failed++
			logger.Error("Failed to sync repository", "error", err)
			continue
		}

		if len(commits) > 0 {
			empty = 0
			continue
		}
		empty++
		if s.opts.MaxConsecutiveEmpty > 0 && empty >= s.opts.MaxConsecutiveEmpty {
			res.StoppedEarly = res.Considered < len(repos)
			logger.Info("Too many consecutive repositories without new commits, stopping", "consecutive_empty", empty)
			break
		}
	}

	s.logger.Info("Sync pass finished",
		"considered", res.Considered,
		"active", countActive(res.Deltas),
		"skipped", res.Skipped,
		"failed", res.Failed,
		"stopped_early", res.StoppedEarly,
	)
	return res, nil
}

// syncRepo handles a single repository and returns the commits it contributed.
func (s *Syncer) syncRepo(ctx context.Context, logger *slog.Logger, repo model.RepoRef, markers MarkerStore, cutoff time.Time, res *Result, fetched *int) ([]model.CommitRecord, error) {
	if !cutoff.IsZero() && !repo.PushedAt.IsZero() && repo.PushedAt.Before(cutoff) {
		res.Skipped++
		logger.Debug("Skipping repository without recent pushes", "pushed_at", repo.PushedAt)
		return nil, nil
	}

	if *fetched > 0 && s.opts.Pause > 0 {
		if err := s.sleep(ctx, s.opts.Pause); err != nil {
			return nil, err
		}
	}
	*fetched++

	marker, _ := markers.Get(repo.ID)
	delta, err := s.source.FetchCommitDelta(ctx, repo, marker)
	if err != nil {
		return nil, err
	}

	if next, ok := nextMarker(delta); ok && next.After(marker) {
		markers.Set(repo.ID, next)
		logger.Debug("Advanced sync marker", "from", marker, "to", next)
	}

	logger.Info("Fetched commits", "count", len(delta.Commits))
	res.Deltas = append(res.Deltas, RepoDelta{Repo: repo, Commits: delta.Commits})
	return delta.Commits, nil
}

// nextMarker returns the later of the reported modification time and the newest
// commit date. It reports false when neither is known.
func nextMarker(delta model.CommitDelta) (time.Time, bool) {
	next := delta.LastModified
	for _, c := range delta.Commits {
		if c.Date.After(next) {
			next = c.Date
		}
	}
	return next, !next.IsZero()
}

func countActive(deltas []RepoDelta) int {
	n := 0
	for _, d := range deltas {
		if len(d.Commits) > 0 {
			n++
		}
	}
	return n
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
