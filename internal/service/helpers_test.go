package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sakif/devpulse/internal/auth"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository/docstore"
)

// =========================================================================
// SHARED FIXTURES
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore returns a Record Store over the in-memory backend.
func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	s := docstore.New(docstore.NewMemoryBackend(), testLogger())
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCipher(t *testing.T) *auth.TokenCipher {
	t.Helper()
	key, err := auth.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c, err := auth.NewTokenCipher(key)
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}
	return c
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// signIn registers a GitHub user through the auth service and returns the
// DevPulse user ID.
func signIn(t *testing.T, svc *AuthService, ghID int64, login string) string {
	t.Helper()
	res, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:          ghID,
		Login:       login,
		AccessToken: "gho_" + login,
	})
	if err != nil {
		t.Fatalf("signIn(%s): %v", login, err)
	}
	return res.User.ID
}

// mustCreateProject creates a project owned by userID.
func mustCreateProject(t *testing.T, svc *ProjectService, userID string) *model.Project {
	t.Helper()
	p, err := svc.Create(context.Background(), userID, CreateProjectInput{
		Name:    "DevPulse",
		RepoURL: "https://github.com/octo/devpulse",
	})
	if err != nil {
		t.Fatalf("creating project: %v", err)
	}
	return p
}

func ptr[T any](v T) *T { return &v }
