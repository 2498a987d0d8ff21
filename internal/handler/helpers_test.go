package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/auth"
	"github.com/sakif/devpulse/internal/github"
	"github.com/sakif/devpulse/internal/handler"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository/docstore"
	"github.com/sakif/devpulse/internal/scorer"
	"github.com/sakif/devpulse/internal/service"
)

const testFrontendURL = "http://localhost:3000"

// =========================================================================
// FAKES
// =========================================================================

// fakeOAuth stands in for GitHub's authorization server.
type fakeOAuth struct {
	user *auth.GitHubUser
	err  error
	code string
}

func (f *fakeOAuth) AuthURL(state string) string {
	return "https://github.test/login/oauth/authorize?state=" + state
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// fakeRepo serves canned repository data for any owner/repo.
// The repo name "broken" simulates a GitHub outage and "missing" a 404.
type fakeRepo struct {
	mu      sync.Mutex
	token   string
	commits []model.CommitSummary
	query   github.CommitQuery
}

func (f *fakeRepo) fail(repo string) error {
	switch repo {
	case "broken":
		return apperror.Upstream("GitHub request failed", errors.New("502 Bad Gateway"))
	case "missing":
		return apperror.NotFound("repository", repo)
	}
	return nil
}

func (f *fakeRepo) Repository(_ context.Context, owner, repo string) (*model.RepositoryInfo, error) {
	if err := f.fail(repo); err != nil {
		return nil, err
	}
	return &model.RepositoryInfo{Owner: owner, Name: repo, FullName: owner + "/" + repo, Stars: 42}, nil
}

func (f *fakeRepo) Contributors(_ context.Context, _, repo string) ([]model.Contributor, error) {
	if err := f.fail(repo); err != nil {
		return nil, err
	}
	return []model.Contributor{{Login: "alice", Contributions: 12}, {Login: "bob", Contributions: 3}}, nil
}

func (f *fakeRepo) Commits(_ context.Context, _, repo string, q github.CommitQuery) ([]model.CommitSummary, error) {
	if err := f.fail(repo); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = q
	return f.commits, nil
}

func (f *fakeRepo) Commit(_ context.Context, _, repo, sha string) (*model.CommitDetail, error) {
	if err := f.fail(repo); err != nil {
		return nil, err
	}
	return &model.CommitDetail{
		CommitSummary: model.CommitSummary{SHA: sha, Message: "detail"},
		Stats:         model.CommitStats{Additions: 3, Deletions: 1, Total: 4},
		Files:         []model.FileChange{{Filename: "main.go", Status: "modified", Additions: 3, Deletions: 1}},
	}, nil
}

func (f *fakeRepo) CollaboratorPermission(_ context.Context, _, repo, _ string) (*model.RepoAccess, error) {
	if err := f.fail(repo); err != nil {
		return nil, err
	}
	return &model.RepoAccess{Permission: "write", CanWrite: true}, nil
}

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

// testEnv wires real services over the in-memory Record Store behind a chi
// router laid out like the production one.
type testEnv struct {
	t      *testing.T
	router chi.Router
	store  *docstore.Store
	auth   *service.AuthService
	tokens *auth.TokenService
	oauth  *fakeOAuth
	repo   *fakeRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := docstore.New(docstore.NewMemoryBackend(), logger)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)
	key, err := auth.GenerateKey()
	require.NoError(t, err)
	cipher, err := auth.NewTokenCipher(key)
	require.NoError(t, err)

	env := &testEnv{
		t:      t,
		store:  store,
		tokens: tokens,
		oauth:  &fakeOAuth{},
		repo:   &fakeRepo{},
	}

	newClient := func(token string) service.RepoClient {
		env.repo.mu.Lock()
		env.repo.token = token
		env.repo.mu.Unlock()
		return env.repo
	}

	env.auth = service.NewAuthService(store, tokens, cipher, logger)
	guard := service.NewGuard(store)
	projects := service.NewProjectService(store, guard, logger)
	tasks := service.NewTaskService(store, store, guard, logger)
	repos := service.NewRepoService(env.auth, newClient)
	analytics := service.NewAnalyticsService(store, guard, env.auth, newClient, scorer.NewOffline(), logger)

	authH := handler.NewAuthHandler(env.oauth, env.auth, testFrontendURL, false, logger)
	projectH := handler.NewProjectHandler(projects)
	taskH := handler.NewTaskHandler(tasks)
	analyticsH := handler.NewAnalyticsHandler(analytics, logger)
	githubH := handler.NewGitHubHandler(repos)
	healthH := handler.NewHealthHandler(store, "memory", logger)

	r := chi.NewRouter()
	r.Get("/api/health", healthH.HandleHealth)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Get("/auth/github/callback", authH.HandleGitHubCallback)
	r.Post("/api/auth/logout", authH.HandleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/auth/me", authH.HandleMe)

		r.Post("/api/projects", projectH.HandleCreate)
		r.Get("/api/projects", projectH.HandleList)
		r.Get("/api/projects/{id}", projectH.HandleGet)
		r.Put("/api/projects/{id}", projectH.HandleUpdate)
		r.Delete("/api/projects/{id}", projectH.HandleDelete)

		r.Post("/api/tasks", taskH.HandleCreate)
		r.Get("/api/tasks/project/{projectID}", taskH.HandleListByProject)
		r.Put("/api/tasks/{id}", taskH.HandleUpdate)
		r.Delete("/api/tasks/{id}", taskH.HandleDelete)

		r.Post("/api/analytics/analyze", analyticsH.HandleAnalyze)
		r.Get("/api/analytics/project/{projectID}", analyticsH.HandleListByProject)
		r.Get("/api/analytics/project/{projectID}/contributor/{contributor}", analyticsH.HandleContributor)
		r.Get("/api/analytics/project/{projectID}/insights", analyticsH.HandleInsights)

		r.Get("/api/github/repo/{owner}/{repo}", githubH.HandleRepository)
		r.Get("/api/github/repo/{owner}/{repo}/contributors", githubH.HandleContributors)
		r.Get("/api/github/repo/{owner}/{repo}/commits", githubH.HandleCommits)
		r.Get("/api/github/repo/{owner}/{repo}/commits/{sha}", githubH.HandleCommit)
		r.Get("/api/github/repo/{owner}/{repo}/access", githubH.HandleAccess)
		r.Post("/api/github/parse-url", githubH.HandleParseURL)
	})

	env.router = r
	return env
}

// signIn registers a GitHub user and returns a session token for them.
func (e *testEnv) signIn(ghID int64, login string) string {
	e.t.Helper()
	res, err := e.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:          ghID,
		Login:       login,
		Name:        strings.ToUpper(login),
		AccessToken: "gho_" + login,
	})
	require.NoError(e.t, err)
	return res.Token
}

// do sends a request through the router. body may be nil, a string of raw
// JSON, or any value to marshal.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// createProject creates a project through the API and returns it.
func (e *testEnv) createProject(token, name string) model.Project {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/api/projects", token, map[string]string{
		"name":    name,
		"repoUrl": "https://github.com/octo/" + strings.ToLower(name),
	})
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Project](e.t, rr)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
