// internal/render/feed.go
package render

import (
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"

	"starred-digest/internal/model"
)

// maxFeedCommits bounds the commit messages listed in one feed item.
const maxFeedCommits = 10

// FeedOptions describe the channel of a generated feed.
type FeedOptions struct {
	Title       string
	Link        string
	Description string
}

// Feed builds a feed with one item per active repository of each report. Item IDs
// are derived from the repository and report day so readers see stable GUIDs.
func Feed(reports []model.Report, opts FeedOptions) *feeds.Feed {
	f := &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: opts.Link},
		Description: opts.Description,
	}
	if f.Title == "" {
		f.Title = Title
	}

	for _, r := range reports {
		if r.GeneratedAt.After(f.Updated) {
			f.Updated = r.GeneratedAt
		}
		for _, a := range r.Repos {
			f.Items = append(f.Items, feedItem(a, r.GeneratedAt))
		}
	}
	if len(reports) > 0 {
		f.Created = f.Updated
	}
	return f
}

func feedItem(a model.RepoActivity, generatedAt time.Time) *feeds.Item {
	title := a.Name
	if h := Headline(a); h != "" {
		title += ": " + h
	}

	var lines []string
	var body strings.Builder
	body.WriteString("<ul>")
	for i, c := range a.Commits {
		if i == maxFeedCommits {
			break
		}
		msg := firstLine(c.Message)
		lines = append(lines, "- "+msg)
		body.WriteString("<li>" + html.EscapeString(msg) + "</li>")
	}
	body.WriteString("</ul>")

	created := a.LastCommitDate
	if created.IsZero() {
		created = generatedAt
	}
	key := a.Name + "@" + generatedAt.UTC().Format(time.DateOnly)

	return &feeds.Item{
		Id:          "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String(),
		Title:       title,
		Link:        &feeds.Link{Href: a.URL},
		Description: strings.Join(lines, "\n"),
		Content:     body.String(),
		Created:     created,
	}
}

// RSS renders reports as an RSS 2.0 document.
func RSS(reports []model.Report, opts FeedOptions) (string, error) {
	return Feed(reports, opts).ToRss()
}

// JSONFeed renders reports as a JSON Feed document.
func JSONFeed(reports []model.Report, opts FeedOptions) (string, error) {
	return Feed(reports, opts).ToJSON()
}
