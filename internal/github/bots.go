// internal/github/bots.go
package github

import (
	"strings"

	"github.com/google/go-github/v62/github"
)

var botLoginSuffixes = []string{"[bot]", "-bot", "_bot"}

// isBotCommit reports whether a commit was authored by an automated account.
// Commits without a linked author account count as bot-authored.
func isBotCommit(c *github.RepositoryCommit) bool {
	author := c.GetAuthor()
	if author == nil {
		return true
	}
	if strings.EqualFold(author.GetType(), "Bot") {
		return true
	}
	return isBotLogin(author.GetLogin())
}

func isBotLogin(login string) bool {
	if login == "" {
		return true
	}
	login = strings.ToLower(login)
	for _, suffix := range botLoginSuffixes {
		if strings.HasSuffix(login, suffix) {
			return true
		}
	}
	return false
}
