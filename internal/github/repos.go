// internal/github/repos.go
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-github/v62/github"

	"starred-digest/internal/model"
)

// mediaTypeStarring makes the starred endpoint wrap each repository with its starred_at time.
const mediaTypeStarring = "application/vnd.github.star+json"

// ListRepos returns up to limit repositories starred by the authenticated user, in source
// order. Identifiers present in exclude are dropped page by page, so they never count
// towards the limit.
func (c *Client) ListRepos(ctx context.Context, exclude map[string]struct{}, limit int, sort, direction string) ([]model.RepoRef, error) {
	if limit <= 0 {
		return nil, nil
	}
	perPage := min(limit, maxPerPage)

	var repos []model.RepoRef
	page := 1
	for len(repos) < limit {
		c.logger.Debug("Fetching starred repositories page", "page", page, "per_page", perPage)

		u := fmt.Sprintf("user/starred?sort=%s&direction=%s&per_page=%d&page=%d",
			url.QueryEscape(sort), url.QueryEscape(direction), perPage, page)
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", mediaTypeStarring)

		var batch []*github.StarredRepository
		resp, err := c.do(ctx, "list starred repositories", req, &batch)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, starred := range batch {
			ref := toRepoRef(starred)
			if _, skip := exclude[ref.ID]; skip {
				continue
			}
			repos = append(repos, ref)
			if len(repos) == limit {
				break
			}
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return repos, nil
}

// toRepoRef translates a github.StarredRepository object to our internal model.RepoRef.
func toRepoRef(s *github.StarredRepository) model.RepoRef {
	r := s.GetRepository()
	return model.RepoRef{
		ID:          r.GetFullName(),
		URL:         r.GetHTMLURL(),
		Description: r.GetDescription(),
		Topics:      r.Topics,
		PushedAt:    r.GetPushedAt().Time,
		StarredAt:   s.GetStarredAt().Time,
	}
}
