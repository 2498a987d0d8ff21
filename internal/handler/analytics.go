package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devpulse/internal/service"
)

// AnalyticsHandler runs commit analysis and serves the stored results.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// HandleAnalyze scores a contributor's most recent commits.
//
// HTTP: POST /api/analytics/analyze
// REQUEST BODY: {"projectId": "...", "contributor": "octocat", "since": "2026-01-01"}
//
// This is the slow endpoint: one GitHub round trip plus one LLM call per
// commit. Commits are processed one at a time and the request context is
// honored between them, so a client that disconnects stops the run.
func (h *AnalyticsHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := h.analytics.Analyze(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("analysis finished",
		slog.String("projectID", req.ProjectID),
		slog.String("contributor", req.Contributor),
		slog.Int("commits", len(result.Analytics)),
		slog.Duration("duration", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, result)
}

// HandleListByProject returns every analytics record of a project.
//
// HTTP: GET /api/analytics/project/{projectID}
func (h *AnalyticsHandler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	records, err := h.analytics.ListByProject(r.Context(), userID, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleContributor returns one contributor's records and average scores.
//
// HTTP: GET /api/analytics/project/{projectID}/contributor/{contributor}
func (h *AnalyticsHandler) HandleContributor(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	// Contributor names come from git author fields and may hold escaped
	// spaces or unicode.
	contributor, err := url.PathUnescape(chi.URLParam(r, "contributor"))
	if err != nil {
		contributor = chi.URLParam(r, "contributor")
	}

	summary, err := h.analytics.ContributorSummary(r.Context(), userID, chi.URLParam(r, "projectID"), contributor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleInsights returns team-level insights for a project.
//
// HTTP: GET /api/analytics/project/{projectID}/insights
func (h *AnalyticsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	insights, err := h.analytics.ProjectInsights(r.Context(), userID, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, insights)
}
