// internal/render/render_test.go
package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starred-digest/internal/model"
	"starred-digest/internal/report"
)

var generated = time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)

func sampleReport() model.Report {
	acts := []model.RepoActivity{
		{
			Name: "acme/api", URL: "https://github.com/acme/api", CommitCount: 2,
			LastCommitDate: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
			Summary:        "Added pagination\nand retries.",
			Topics:         []string{"go", "http"},
			Commits: []model.CommitRecord{
				{SHA: "2", Message: "feat: pagination", Date: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
				{SHA: "1", Message: "fix: retry", Date: time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC)},
			},
		},
		{
			Name: "acme/cli", URL: "https://github.com/acme/cli", CommitCount: 1,
			Topics:  []string{"go"},
			Commits: []model.CommitRecord{{SHA: "3", Message: "docs: readme <b>\n\nlong body", Date: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}},
		},
		{
			Name: "solo/tool", URL: "https://github.com/solo/tool", CommitCount: 1,
			Commits: []model.CommitRecord{{SHA: "4", Message: "init"}},
		},
	}
	return report.NewReport(5, acts, generated)
}

func TestMarkdown(t *testing.T) {
	t.Run("empty report", func(t *testing.T) {
		md := Markdown(report.NewReport(3, nil, generated), report.DefaultNoiseTopic)
		assert.Equal(t, "# Recent Activity in Starred Repositories\nNo recent activity found in starred repositories.\n", md)
	})

	t.Run("groups repositories and falls back to the newest commit", func(t *testing.T) {
		md := Markdown(sampleReport(), report.DefaultNoiseTopic)

		assert.True(t, strings.HasPrefix(md, "# Recent Activity in Starred Repositories\n_Tracking 3/5 repos with 4 new commits_\n"))
		assert.Contains(t, md, "\n## go\n\n- [acme/api](https://github.com/acme/api) · 2 commits · 2024-06-01: Added pagination and retries.\n- [acme/cli](https://github.com/acme/cli) · 1 commit: docs: readme <b>\n")
		assert.Contains(t, md, "\n## Other\n\n- [solo/tool](https://github.com/solo/tool) · 1 commit: init\n")
		assert.Less(t, strings.Index(md, "## go"), strings.Index(md, "## Other"))
	})
}

func TestHeadline(t *testing.T) {
	assert.Equal(t, "", Headline(model.RepoActivity{}))
	assert.Equal(t, "subject", Headline(model.RepoActivity{Commits: []model.CommitRecord{{Message: "  subject\nbody"}}}))
	assert.Equal(t, "a b", Headline(model.RepoActivity{Summary: " a\n b ", Commits: []model.CommitRecord{{Message: "x"}}}))
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, false)

	require.NoError(t, term.Print(sampleReport(), report.DefaultNoiseTopic))

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "plain output must carry no escape codes")
	assert.Contains(t, out, Title)
	assert.Contains(t, out, "Tracking 3/5 repos with 4 new commits")
	assert.Contains(t, out, "  • acme/api (2 commits) Added pagination and retries.")

	assert.False(t, ColorEnabled(&buf, func(string) string { return "" }))
	assert.False(t, ColorEnabled(&buf, func(k string) string {
		if k == "NO_COLOR" {
			return "1"
		}
		return ""
	}))
}

func TestFeeds(t *testing.T) {
	opts := FeedOptions{Title: "My stars", Link: "https://example.com/digest"}
	reports := []model.Report{sampleReport()}

	t.Run("rss lists one item per active repo with stable guids", func(t *testing.T) {
		rss, err := RSS(reports, opts)
		require.NoError(t, err)

		assert.Contains(t, rss, "<title>My stars</title>")
		assert.Contains(t, rss, "<title>acme/api: Added pagination and retries.</title>")
		assert.Equal(t, 3, strings.Count(rss, "<item>"))

		again, err := RSS(reports, opts)
		require.NoError(t, err)
		assert.Equal(t, rss, again)
	})

	t.Run("json feed escapes commit messages in the body", func(t *testing.T) {
		doc, err := JSONFeed(reports, opts)
		require.NoError(t, err)

		var parsed struct {
			Title string `json:"title"`
			Items []struct {
				ID          string `json:"id"`
				Title       string `json:"title"`
				ContentHTML string `json:"content_html"`
				Summary     string `json:"summary"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
		assert.Equal(t, "My stars", parsed.Title)
		require.Len(t, parsed.Items, 3)
		assert.True(t, strings.HasPrefix(parsed.Items[0].ID, "urn:uuid:"))
		assert.NotEqual(t, parsed.Items[0].ID, parsed.Items[1].ID)
		assert.Equal(t, "- feat: pagination\n- fix: retry", parsed.Items[0].Summary)
		assert.Contains(t, parsed.Items[1].ContentHTML, "docs: readme &lt;b&gt;")
	})
}
