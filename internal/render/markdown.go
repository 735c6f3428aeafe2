// internal/render/markdown.go
package render

import (
	"fmt"
	"strings"
	"time"

	"starred-digest/internal/model"
	"starred-digest/internal/report"
)

const (
	// Title heads every rendered digest.
	Title = "Recent Activity in Starred Repositories"

	emptyMessage = "No recent activity found in starred repositories."
)

// Markdown renders r grouped by topic cluster.
func Markdown(r model.Report, noiseTopic string) string {
	var b strings.Builder
	b.WriteString("# " + Title + "\n")

	if len(r.Repos) == 0 {
		b.WriteString(emptyMessage + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "_Tracking %d/%d repos with %d new commits_\n", r.ActiveReposCount, r.TotalReposCount, r.TotalCommitsCount)
	for _, g := range report.GroupByTopic(r.Repos, noiseTopic) {
		fmt.Fprintf(&b, "\n## %s\n\n", g.Label)
		for _, a := range g.Repos {
			fmt.Fprintf(&b, "- [%s](%s) · %s", a.Name, a.URL, commitCount(a.CommitCount))
			if !a.LastCommitDate.IsZero() {
				fmt.Fprintf(&b, " · %s", a.LastCommitDate.UTC().Format(time.DateOnly))
			}
			if h := Headline(a); h != "" {
				b.WriteString(": " + h)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Headline is the one-line description of an activity: its summary, or the first
// line of the newest commit message when there is none.
func Headline(a model.RepoActivity) string {
	if s := strings.TrimSpace(a.Summary); s != "" {
		return strings.Join(strings.Fields(s), " ")
	}
	if len(a.Commits) == 0 {
		return ""
	}
	return firstLine(a.Commits[0].Message)
}

func firstLine(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

func commitCount(n int) string {
	if n == 1 {
		return "1 commit"
	}
	return fmt.Sprintf("%d commits", n)
}
