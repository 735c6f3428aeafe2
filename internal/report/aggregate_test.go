// internal/report/aggregate_test.go
package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starred-digest/internal/model"
)

var (
	day1 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
)

func activity(name string, commits int, topics ...string) model.RepoActivity {
	a := model.RepoActivity{Name: name, URL: "https://github.com/" + name, CommitCount: commits, Topics: topics}
	for i := 0; i < commits; i++ {
		a.Commits = append(a.Commits, model.CommitRecord{SHA: name, Message: "change", Date: day1})
	}
	return a
}

func TestBuild(t *testing.T) {
	repo := model.RepoRef{ID: "acme/widget", URL: "https://github.com/acme/widget", Topics: []string{"go", "cli"}}
	commits := []model.CommitRecord{
		{SHA: "b", Message: "second", Date: day2},
		{SHA: "a", Message: "first", Date: day1},
	}

	act := Build(repo, commits)

	assert.Equal(t, "acme/widget", act.Name)
	assert.Equal(t, repo.URL, act.URL)
	assert.Equal(t, 2, act.CommitCount)
	assert.Equal(t, commits, act.Commits)
	assert.Equal(t, []string{"go", "cli"}, act.Topics)
	assert.True(t, day2.Equal(act.LastCommitDate))

	repo.Topics[0] = "mutated"
	assert.Equal(t, "go", act.Topics[0], "topics must be copied")
}

func TestNewReport(t *testing.T) {
	acts := []model.RepoActivity{activity("a/one", 2), activity("a/idle", 0), activity("a/two", 3)}

	r := NewReport(5, acts, day2)

	assert.Equal(t, 5, r.TotalReposCount)
	assert.Equal(t, 2, r.ActiveReposCount)
	assert.Equal(t, 5, r.TotalCommitsCount)
	require.Len(t, r.Repos, 2)
	assert.Equal(t, "a/one", r.Repos[0].Name)
	assert.Equal(t, "a/two", r.Repos[1].Name)
}

func TestMerge(t *testing.T) {
	a := NewReport(4, []model.RepoActivity{activity("a/one", 2), activity("a/two", 1)}, day1)
	b := NewReport(3, []model.RepoActivity{activity("b/one", 4)}, day2)
	empty := NewReport(0, nil, time.Time{})

	t.Run("empty report is the identity", func(t *testing.T) {
		assert.Equal(t, a, Merge(a, empty))
		assert.Equal(t, a, Merge(empty, a))
	})

	t.Run("counters add up and repos concatenate", func(t *testing.T) {
		m := Merge(a, b)

		assert.Equal(t, a.TotalReposCount+b.TotalReposCount, m.TotalReposCount)
		assert.Equal(t, a.ActiveReposCount+b.ActiveReposCount, m.ActiveReposCount)
		assert.Equal(t, a.TotalCommitsCount+b.TotalCommitsCount, m.TotalCommitsCount)
		require.Len(t, m.Repos, 3)
		assert.Equal(t, []string{"a/one", "a/two", "b/one"}, []string{m.Repos[0].Name, m.Repos[1].Name, m.Repos[2].Name})
		assert.True(t, day2.Equal(m.GeneratedAt))
	})

	t.Run("overlapping repos are not de-duplicated", func(t *testing.T) {
		m := Merge(a, a)
		assert.Len(t, m.Repos, 4)
		assert.Equal(t, 2*a.TotalCommitsCount, m.TotalCommitsCount)
	})
}

func TestRepoNames(t *testing.T) {
	r := NewReport(2, []model.RepoActivity{activity("a/one", 1), activity("a/two", 1)}, day1)
	assert.Equal(t, map[string]struct{}{"a/one": {}, "a/two": {}}, RepoNames(r))
}
