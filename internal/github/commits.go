// internal/github/commits.go
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	custom_errors "starred-digest/internal/errors"
	"starred-digest/internal/model"
)

// maxCommitPages bounds how much history a single delta may pull.
const maxCommitPages = 10

// FetchCommitDelta fetches the commits of repo newer than marker. A zero marker falls
// back to the default lookback window. The first page is requested conditionally, so a
// repository without changes costs a single 304.
func (c *Client) FetchCommitDelta(ctx context.Context, repo model.RepoRef, marker time.Time) (model.CommitDelta, error) {
	owner, name, err := splitRepoID(repo.ID)
	if err != nil {
		return model.CommitDelta{}, err
	}

	bound := marker
	if bound.IsZero() {
		bound = c.now().Add(-c.opts.DefaultLookback)
	}

	base := fmt.Sprintf("repos/%s/%s/commits?since=%s&per_page=%d",
		url.PathEscape(owner), url.PathEscape(name), url.QueryEscape(bound.UTC().Format(time.RFC3339)), maxPerPage)

	var (
		delta   model.CommitDelta
		fetched []*github.RepositoryCommit
		more    bool
	)
	for page, pages := 0, 0; pages < maxCommitPages; pages++ {
		u := base
		if page > 0 {
			u += "&page=" + strconv.Itoa(page)
		}
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return model.CommitDelta{}, err
		}
		if pages == 0 {
			req.Header.Set("If-Modified-Since", bound.UTC().Format(http.TimeFormat))
		}

		var batch []*github.RepositoryCommit
		resp, err := c.do(ctx, "list commits "+repo.ID, req, &batch)
		if err != nil {
			return model.CommitDelta{}, err
		}

		if pages == 0 {
			delta.LastModified = lastModified(resp)
			if resp.StatusCode == http.StatusNotModified {
				c.logger.Debug("Repository not modified", "repo", repo.ID, "since", bound.Format(time.RFC3339))
				return delta, nil
			}
		}

		fetched = append(fetched, batch...)
		more = resp.NextPage != 0
		if !more {
			break
		}
		page = resp.NextPage
	}
	if more {
		c.logger.Warn("Commit history truncated at page limit, older commits are skipped",
			"repo", repo.ID, "pages", maxCommitPages, "fetched", len(fetched), "since", bound.Format(time.RFC3339))
	}

	delta.Commits = c.filterCommits(fetched, bound)
	c.logger.Debug("Fetched commit delta", "repo", repo.ID, "fetched", len(fetched), "kept", len(delta.Commits))
	return delta, nil
}

// filterCommits drops bot-authored commits (when configured) and anything older than
// bound, keeping the source's newest-first order.
func (c *Client) filterCommits(commits []*github.RepositoryCommit, bound time.Time) []model.CommitRecord {
	out := make([]model.CommitRecord, 0, len(commits))
	for _, rc := range commits {
		if c.opts.ExcludeBots && isBotCommit(rc) {
			continue
		}
		date := commitDate(rc)
		if date.Before(bound) {
			continue
		}
		out = append(out, toCommitRecord(rc, date))
	}
	return out
}

func commitDate(rc *github.RepositoryCommit) time.Time {
	if d := rc.GetCommit().GetAuthor().GetDate(); !d.IsZero() {
		return d.Time
	}
	return rc.GetCommit().GetCommitter().GetDate().Time
}

// toCommitRecord translates a github.RepositoryCommit object to our internal model.CommitRecord.
func toCommitRecord(rc *github.RepositoryCommit, date time.Time) model.CommitRecord {
	return model.CommitRecord{
		SHA:     rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Date:    date,
	}
}

func lastModified(resp *github.Response) time.Time {
	if resp == nil || resp.Response == nil {
		return time.Time{}
	}
	v := resp.Header.Get("Last-Modified")
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitRepoID(id string) (string, string, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &custom_errors.ErrInvalidRepoFormat{Repo: id}
	}
	return parts[0], parts[1], nil
}
