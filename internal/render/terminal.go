// internal/render/terminal.go
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"starred-digest/internal/model"
	"starred-digest/internal/report"
)

// Terminal prints a styled digest. Styling is dropped when disabled, leaving
// plain text with no ANSI codes.
type Terminal struct {
	out    io.Writer
	header lipgloss.Style
	label  lipgloss.Style
	name   lipgloss.Style
	muted  lipgloss.Style
	rule   lipgloss.Style
}

// ColorEnabled reports whether out is a terminal and NO_COLOR is unset.
func ColorEnabled(out io.Writer, getenv func(string) string) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, color bool) *Terminal {
	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Terminal{
		out:    out,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		name:   r.NewStyle().Foreground(lipgloss.Color("10")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("245")),
		rule:   r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Render returns the styled digest of rep.
func (t *Terminal) Render(rep model.Report, noiseTopic string) string {
	var b strings.Builder
	rule := t.rule.Render(strings.Repeat("=", 100))

	b.WriteString(rule + "\n")
	b.WriteString(t.header.Render(Title) + "\n")
	if len(rep.Repos) == 0 {
		b.WriteString(emptyMessage + "\n")
		b.WriteString(rule + "\n")
		return b.String()
	}

	b.WriteString(t.muted.Render(fmt.Sprintf("Tracking %d/%d repos with %d new commits",
		rep.ActiveReposCount, rep.TotalReposCount, rep.TotalCommitsCount)) + "\n")
	for _, g := range report.GroupByTopic(rep.Repos, noiseTopic) {
		b.WriteString("\n" + t.label.Render(g.Label) + "\n")
		for _, a := range g.Repos {
			line := "  • " + t.name.Render(a.Name) + " " + t.muted.Render("("+commitCount(a.CommitCount)+")")
			if h := Headline(a); h != "" {
				line += " " + h
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(rule + "\n")
	return b.String()
}

// Print writes the styled digest of rep.
func (t *Terminal) Print(rep model.Report, noiseTopic string) error {
	_, err := io.WriteString(t.out, t.Render(rep, noiseTopic))
	return err
}
