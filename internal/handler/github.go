package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devpulse/internal/service"
)

// GitHubHandler proxies repository reads to GitHub using the caller's own
// access token, so users only ever see repositories they can already see.
type GitHubHandler struct {
	repos *service.RepoService
}

// NewGitHubHandler creates a GitHubHandler.
func NewGitHubHandler(repos *service.RepoService) *GitHubHandler {
	return &GitHubHandler{repos: repos}
}

// HandleRepository returns repository metadata.
//
// HTTP: GET /api/github/repo/{owner}/{repo}
func (h *GitHubHandler) HandleRepository(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	info, err := h.repos.Repository(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// HandleContributors lists the repository's contributors.
//
// HTTP: GET /api/github/repo/{owner}/{repo}/contributors
func (h *GitHubHandler) HandleContributors(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	contributors, err := h.repos.Contributors(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contributors)
}

// HandleCommits lists recent commits, optionally filtered.
//
// HTTP: GET /api/github/repo/{owner}/{repo}/commits?author=octocat&since=2026-01-01
func (h *GitHubHandler) HandleCommits(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	commits, err := h.repos.Commits(r.Context(), userID,
		chi.URLParam(r, "owner"), chi.URLParam(r, "repo"),
		q.Get("author"), q.Get("since"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commits)
}

// HandleCommit returns one commit with its changed files.
//
// HTTP: GET /api/github/repo/{owner}/{repo}/commits/{sha}
func (h *GitHubHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	commit, err := h.repos.Commit(r.Context(), userID,
		chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), chi.URLParam(r, "sha"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commit)
}

// HandleAccess reports the caller's collaborator permission on the repository.
//
// HTTP: GET /api/github/repo/{owner}/{repo}/access
func (h *GitHubHandler) HandleAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	access, err := h.repos.Access(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, access)
}

type parseURLRequest struct {
	URL string `json:"url"`
}

type parseURLResponse struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// HandleParseURL splits a GitHub repository URL into owner and repo.
//
// HTTP: POST /api/github/parse-url
// REQUEST BODY: {"url": "git@github.com:octo/devpulse.git"}
func (h *GitHubHandler) HandleParseURL(w http.ResponseWriter, r *http.Request) {
	var req parseURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner, repo, err := h.repos.ParseURL(req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, parseURLResponse{Owner: owner, Repo: repo})
}
