package service

import (
	"context"
	"strings"
	"time"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/github"
	"github.com/sakif/devpulse/internal/model"
)

// DefaultCommitPageSize is how many commits the commit listing returns.
const DefaultCommitPageSize = 30

// RepoClient reads repository data as one GitHub user.
// *github.Client satisfies it.
type RepoClient interface {
	Repository(ctx context.Context, owner, repo string) (*model.RepositoryInfo, error)
	Contributors(ctx context.Context, owner, repo string) ([]model.Contributor, error)
	Commits(ctx context.Context, owner, repo string, q github.CommitQuery) ([]model.CommitSummary, error)
	Commit(ctx context.Context, owner, repo, sha string) (*model.CommitDetail, error)
	CollaboratorPermission(ctx context.Context, owner, repo, user string) (*model.RepoAccess, error)
}

// RepoClientFactory builds a RepoClient authenticated with token.
type RepoClientFactory func(token string) RepoClient

// Credentials resolves a user's stored GitHub identity.
// *AuthService satisfies it.
type Credentials interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GitHubToken(ctx context.Context, userID string) (string, error)
}

// RepoService proxies GitHub repository reads with the caller's own token.
type RepoService struct {
	creds     Credentials
	newClient RepoClientFactory
}

func NewRepoService(creds Credentials, newClient RepoClientFactory) *RepoService {
	return &RepoService{creds: creds, newClient: newClient}
}

func (s *RepoService) clientFor(ctx context.Context, userID string) (RepoClient, error) {
	token, err := s.creds.GitHubToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.newClient(token), nil
}

func (s *RepoService) Repository(ctx context.Context, userID, owner, repo string) (*model.RepositoryInfo, error) {
	c, err := s.clientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Repository(ctx, owner, repo)
}

func (s *RepoService) Contributors(ctx context.Context, userID, owner, repo string) ([]model.Contributor, error) {
	c, err := s.clientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Contributors(ctx, owner, repo)
}

// Commits lists recent commits, optionally filtered by author login and a
// since date (RFC 3339 or YYYY-MM-DD).
func (s *RepoService) Commits(ctx context.Context, userID, owner, repo, author, since string) ([]model.CommitSummary, error) {
	sinceTime, err := parseSince(since)
	if err != nil {
		return nil, err
	}
	c, err := s.clientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Commits(ctx, owner, repo, github.CommitQuery{
		Author:  strings.TrimSpace(author),
		Since:   sinceTime,
		PerPage: DefaultCommitPageSize,
	})
}

func (s *RepoService) Commit(ctx context.Context, userID, owner, repo, sha string) (*model.CommitDetail, error) {
	c, err := s.clientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Commit(ctx, owner, repo, sha)
}

// Access reports the caller's own collaborator permission on the repository.
func (s *RepoService) Access(ctx context.Context, userID, owner, repo string) (*model.RepoAccess, error) {
	user, err := s.creds.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := s.clientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.CollaboratorPermission(ctx, owner, repo, user.Username)
}

// ParseURL splits a GitHub repository URL into owner and repo.
func (s *RepoService) ParseURL(raw string) (owner, repo string, err error) {
	return github.ParseRepoURL(raw)
}

// parseSince accepts an RFC 3339 timestamp or a bare date. Empty means no
// lower bound.
func parseSince(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dueDateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.ValidationFailed("since", "since must be an RFC 3339 timestamp or YYYY-MM-DD")
}
