// internal/model/models.go
package model

import "time"

// RepoRef is the snapshot of a starred repository taken at discovery time.
type RepoRef struct {
	ID          string // owner/name
	URL         string
	Description string
	Topics      []string
	PushedAt    time.Time // zero when the source did not report it
	StarredAt   time.Time
}

// CommitRecord is the compact projection of a commit kept in reports.
type CommitRecord struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// CommitDelta is what a conditional fetch returns for one repository.
// LastModified is zero when the source omitted the header.
type CommitDelta struct {
	Commits      []CommitRecord
	LastModified time.Time
}

// RepoActivity describes the new activity of one repository.
type RepoActivity struct {
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	CommitCount    int            `json:"commit_count"`
	LastCommitDate time.Time      `json:"last_commit_date"`
	Summary        string         `json:"summary,omitempty"`
	Commits        []CommitRecord `json:"commits"`
	Topics         []string       `json:"topics,omitempty"`
}

// Report is the persisted digest of one day.
type Report struct {
	TotalReposCount   int            `json:"total_repos_count"`
	ActiveReposCount  int            `json:"active_repos_count"`
	TotalCommitsCount int            `json:"total_commits_count"`
	GeneratedAt       time.Time      `json:"generated_at"`
	Repos             []RepoActivity `json:"repos"`
}
