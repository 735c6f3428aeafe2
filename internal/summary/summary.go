// internal/summary/summary.go
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"starred-digest/internal/model"
)

// promptCommits is how many of the newest commit messages go into a prompt.
const promptCommits = 5

// Summarizer produces a short narrative of a repository's recent commits.
type Summarizer interface {
	Summarize(ctx context.Context, repo model.RepoRef, commits []model.CommitRecord) (string, error)
}

// Nop leaves every summary empty.
type Nop struct{}

func (Nop) Summarize(context.Context, model.RepoRef, []model.CommitRecord) (string, error) {
	return "", nil
}

// Fill summarizes the active records of acts in place, at most limit at a time.
// repos[i] must describe acts[i]. Failures are logged and leave the summary empty.
func Fill(ctx context.Context, s Summarizer, repos []model.RepoRef, acts []model.RepoActivity, limit int, logger *slog.Logger) error {
	if len(repos) != len(acts) {
		return fmt.Errorf("summarize: %d repositories for %d records", len(repos), len(acts))
	}
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range acts {
		if acts[i].CommitCount == 0 {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			text, err := s.Summarize(gctx, repos[i], acts[i].Commits)
			if err != nil {
				logger.Error("Failed to summarize repository", "repo", repos[i].ID, "error", err)
				return nil
			}
			acts[i].Summary = strings.TrimSpace(text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Prompt builds the text sent to the model for one repository.
func Prompt(repo model.RepoRef, commits []model.CommitRecord) string {
	description := repo.Description
	if description == "" {
		description = "No description"
	}

	var lines []string
	for i, c := range commits {
		if i == promptCommits {
			break
		}
		lines = append(lines, "- "+strings.TrimSpace(c.Message))
	}

	return fmt.Sprintf(`Repository: %s
Description: %s
Recent commits: %d

Commit details:
%s

Please provide a brief summary of the recent development activity in this repository.
Focus on the main changes and patterns in the commit messages.
Keep the summary concise (2-3 sentences).`,
		repo.ID, description, len(commits), strings.Join(lines, "\n"))
}
