// Package github reads repository data from the GitHub REST API on behalf of
// a signed-in user. Every Client is bound to one user's OAuth token, so what
// it can see is exactly what that user can see on github.com.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/model"
)

// PatchExcerptLimit bounds how much of a commit's first file patch is kept
// for scoring. LLM prompts are priced per token.
const PatchExcerptLimit = 1000

// Client is a GitHub API client authenticated as a single user.
type Client struct {
	hc  *http.Client
	api *gogithub.Client
}

// CommitQuery filters the repository commit listing. Zero values mean
// "no filter"; PerPage <= 0 uses GitHub's default page size.
type CommitQuery struct {
	Author  string
	Since   time.Time
	PerPage int
}

// NewClient creates a client that sends token as a Bearer credential.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = 30 * time.Second
	return &Client{hc: hc, api: gogithub.NewClient(hc)}
}

// WithBaseURL returns a copy of c that talks to another API root,
// e.g. GitHub Enterprise or a test server.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("github: parsing base URL: %w", err)
	}
	api := gogithub.NewClient(c.hc)
	api.BaseURL = u
	return &Client{hc: c.hc, api: api}, nil
}

// Repository returns repository metadata.
func (c *Client) Repository(ctx context.Context, owner, repo string) (*model.RepositoryInfo, error) {
	r, _, err := c.api.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classify(err, "repository", owner+"/"+repo, "failed to fetch repository")
	}
	return convertRepository(r), nil
}

// Contributors lists the repository's contributors, most active first.
func (c *Client) Contributors(ctx context.Context, owner, repo string) ([]model.Contributor, error) {
	list, _, err := c.api.Repositories.ListContributors(ctx, owner, repo, &gogithub.ListContributorsOptions{})
	if err != nil {
		return nil, classify(err, "repository", owner+"/"+repo, "failed to fetch contributors")
	}
	out := make([]model.Contributor, 0, len(list))
	for _, ct := range list {
		out = append(out, model.Contributor{
			Login:         ct.GetLogin(),
			ID:            ct.GetID(),
			AvatarURL:     ct.GetAvatarURL(),
			Contributions: ct.GetContributions(),
		})
	}
	return out, nil
}

// Commits lists one page of commits, newest first.
func (c *Client) Commits(ctx context.Context, owner, repo string, q CommitQuery) ([]model.CommitSummary, error) {
	opts := &gogithub.CommitsListOptions{
		Author:      q.Author,
		Since:       q.Since,
		ListOptions: gogithub.ListOptions{PerPage: q.PerPage},
	}
	list, _, err := c.api.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return nil, classify(err, "repository", owner+"/"+repo, "failed to fetch commits")
	}
	out := make([]model.CommitSummary, 0, len(list))
	for _, rc := range list {
		out = append(out, convertCommitSummary(rc))
	}
	return out, nil
}

// Commit returns one commit with its stats, changed files and patch excerpt.
func (c *Client) Commit(ctx context.Context, owner, repo, sha string) (*model.CommitDetail, error) {
	rc, _, err := c.api.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return nil, classify(err, "commit", sha, "failed to fetch commit details")
	}
	return convertCommitDetail(rc), nil
}

// CollaboratorPermission reports what user may do in the repository.
func (c *Client) CollaboratorPermission(ctx context.Context, owner, repo, user string) (*model.RepoAccess, error) {
	level, _, err := c.api.Repositories.GetPermissionLevel(ctx, owner, repo, user)
	if err != nil {
		return nil, classify(err, "collaborator", user, "failed to check repository access")
	}
	perm := level.GetPermission()
	return &model.RepoAccess{
		Permission: perm,
		CanWrite:   perm == "admin" || perm == "maintain" || perm == "write",
	}, nil
}

// classify turns a go-github error into an apperror. A GitHub 404 is a
// NotFound for the named resource; everything else is an upstream failure.
func classify(err error, resource, id, message string) error {
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return apperror.NotFound(resource, id)
	}
	return apperror.Upstream(message, err)
}

func convertRepository(r *gogithub.Repository) *model.RepositoryInfo {
	return &model.RepositoryInfo{
		ID:            r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		Private:       r.GetPrivate(),
	}
}

func convertCommitSummary(rc *gogithub.RepositoryCommit) model.CommitSummary {
	s := model.CommitSummary{
		SHA:     rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Author:  rc.GetCommit().GetAuthor().GetName(),
		Login:   rc.GetAuthor().GetLogin(),
		URL:     rc.GetHTMLURL(),
	}
	if d := rc.GetCommit().GetAuthor().GetDate(); !d.IsZero() {
		s.Date = d.UTC().Format(time.RFC3339)
	}
	return s
}

func convertCommitDetail(rc *gogithub.RepositoryCommit) *model.CommitDetail {
	d := &model.CommitDetail{
		CommitSummary: convertCommitSummary(rc),
		Stats: model.CommitStats{
			Additions: rc.GetStats().GetAdditions(),
			Deletions: rc.GetStats().GetDeletions(),
			Total:     rc.GetStats().GetTotal(),
		},
		Files: make([]model.FileChange, 0, len(rc.Files)),
	}
	for _, f := range rc.Files {
		d.Files = append(d.Files, model.FileChange{
			Filename:  f.GetFilename(),
			Status:    f.GetStatus(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Patch:     f.GetPatch(),
		})
	}
	if len(d.Files) > 0 {
		d.PatchExcerpt = truncate(d.Files[0].Patch, PatchExcerptLimit)
	}
	return d
}

// truncate keeps the first n characters of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
