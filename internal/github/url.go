package github

import (
	"regexp"
	"strings"

	"github.com/sakif/devpulse/internal/apperror"
)

// Accepted forms:
//
//	https://github.com/owner/repo
//	https://github.com/owner/repo.git
//	https://github.com/owner/repo/
//	git@github.com:owner/repo.git
//	github.com/owner/repo
var (
	httpsRepoURL = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?$`)
	sshRepoURL   = regexp.MustCompile(`(?i)^git@github\.com:([^/\s]+)/([^/\s]+?)(?:\.git)?$`)
)

// ParseRepoURL extracts the owner and repository name from a GitHub URL.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	clean := strings.TrimRight(strings.TrimSpace(raw), "/")

	m := httpsRepoURL.FindStringSubmatch(clean)
	if m == nil {
		m = sshRepoURL.FindStringSubmatch(clean)
	}
	if m == nil || m[1] == "" || m[2] == "" {
		return "", "", apperror.ValidationFailed("url", "Invalid GitHub repository URL")
	}
	return m[1], m[2], nil
}
