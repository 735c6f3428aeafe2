// internal/report/aggregate.go
package report

import (
	"slices"
	"time"

	"starred-digest/internal/model"
)

// Build turns the commits fetched for repo into an activity record.
func Build(repo model.RepoRef, commits []model.CommitRecord) model.RepoActivity {
	act := model.RepoActivity{
		Name:        repo.ID,
		URL:         repo.URL,
		CommitCount: len(commits),
		Commits:     make([]model.CommitRecord, len(commits)),
		Topics:      slices.Clone(repo.Topics),
	}
	for i, c := range commits {
		act.Commits[i] = model.CommitRecord{SHA: c.SHA, Message: c.Message, Date: c.Date}
		if c.Date.After(act.LastCommitDate) {
			act.LastCommitDate = c.Date
		}
	}
	return act
}

// NewReport builds the report of one pass. totalConsidered counts every repository
// looked at; only records with at least one commit are kept.
func NewReport(totalConsidered int, acts []model.RepoActivity, generatedAt time.Time) model.Report {
	r := model.Report{
		TotalReposCount: totalConsidered,
		GeneratedAt:     generatedAt.UTC(),
		Repos:           []model.RepoActivity{},
	}
	for _, a := range acts {
		if a.CommitCount == 0 {
			continue
		}
		r.ActiveReposCount++
		r.TotalCommitsCount += a.CommitCount
		r.Repos = append(r.Repos, a)
	}
	return r
}

// Merge sums the counters of a and b and concatenates their repositories, a first.
// Repositories present in both are kept twice; callers keep the two sets disjoint.
func Merge(a, b model.Report) model.Report {
	merged := model.Report{
		TotalReposCount:   a.TotalReposCount + b.TotalReposCount,
		ActiveReposCount:  a.ActiveReposCount + b.ActiveReposCount,
		TotalCommitsCount: a.TotalCommitsCount + b.TotalCommitsCount,
		GeneratedAt:       a.GeneratedAt,
		Repos:             make([]model.RepoActivity, 0, len(a.Repos)+len(b.Repos)),
	}
	if b.GeneratedAt.After(merged.GeneratedAt) {
		merged.GeneratedAt = b.GeneratedAt
	}
	merged.Repos = append(merged.Repos, a.Repos...)
	merged.Repos = append(merged.Repos, b.Repos...)
	return merged
}

// RepoNames returns the identifiers already present in r.
func RepoNames(r model.Report) map[string]struct{} {
	names := make(map[string]struct{}, len(r.Repos))
	for _, a := range r.Repos {
		names[a.Name] = struct{}{}
	}
	return names
}
