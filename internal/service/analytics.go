package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devpulse/internal/github"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository"
	"github.com/sakif/devpulse/internal/scorer"
)

const (
	// MaxCommitsPerAnalysis caps LLM calls per analyze request.
	MaxCommitsPerAnalysis = 5
	// analyzeFetchSize is how many commits are listed before the cap applies.
	analyzeFetchSize = 10
)

// AnalyzeRequest is the body of POST /api/analytics/analyze.
type AnalyzeRequest struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Contributor string `json:"contributor" validate:"required"`
	Since       string `json:"since"`
}

type AnalyzeResult struct {
	Message   string                  `json:"message"`
	Analytics []model.AnalyticsRecord `json:"analytics"`
}

type ContributorSummary struct {
	Contributor  string                  `json:"contributor"`
	TotalCommits int                     `json:"totalCommits"`
	Scores       model.Scores            `json:"scores"`
	Analytics    []model.AnalyticsRecord `json:"analytics"`
}

type ProjectInsights struct {
	Insights model.Insights `json:"insights"`
	Scores   model.Scores   `json:"scores"`
}

// noDataInsights is shown before any commit has been analyzed.
func noDataInsights() model.Insights {
	return model.Insights{
		Strengths:       []string{"No data yet"},
		FocusAreas:      []string{"Analyze commits to get insights"},
		Recommendations: []string{"Start by analyzing team commits"},
	}
}

// AnalyticsService scores contributors' commits and reports on the results.
type AnalyticsService struct {
	records   repository.AnalyticsRepository
	guard     *Guard
	creds     Credentials
	newClient RepoClientFactory
	scorer    scorer.Scorer
	logger    *slog.Logger
}

func NewAnalyticsService(
	records repository.AnalyticsRepository,
	guard *Guard,
	creds Credentials,
	newClient RepoClientFactory,
	sc scorer.Scorer,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		records:   records,
		guard:     guard,
		creds:     creds,
		newClient: newClient,
		scorer:    sc,
		logger:    logger,
	}
}

// Analyze scores the contributor's most recent commits in the project's
// repository and stores one analytics record per commit.
//
// Commits are analyzed one at a time. A commit whose details cannot be
// fetched is skipped; the scorer itself never fails.
func (s *AnalyticsService) Analyze(ctx context.Context, userID string, req AnalyzeRequest) (*AnalyzeResult, error) {
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Contributor = strings.TrimSpace(req.Contributor)
	if err := checkInput(req); err != nil {
		return nil, err
	}
	since, err := parseSince(req.Since)
	if err != nil {
		return nil, err
	}

	project, err := s.guard.RequireOwnership(ctx, req.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.creds.GitHubToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	client := s.newClient(token)

	commits, err := client.Commits(ctx, project.Owner, project.Repo, github.CommitQuery{
		Author:  req.Contributor,
		Since:   since,
		PerPage: analyzeFetchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing commits for analysis: %w", err)
	}
	if len(commits) == 0 {
		return &AnalyzeResult{
			Message:   "No commits found for this contributor",
			Analytics: []model.AnalyticsRecord{},
		}, nil
	}
	if len(commits) > MaxCommitsPerAnalysis {
		commits = commits[:MaxCommitsPerAnalysis]
	}

	results := make([]model.AnalyticsRecord, 0, len(commits))
	for _, c := range commits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detail, err := client.Commit(ctx, project.Owner, project.Repo, c.SHA)
		if err != nil {
			s.logger.Warn("skipping commit, details unavailable",
				slog.String("sha", c.SHA),
				slog.String("error", err.Error()),
			)
			continue
		}
		// The listing carries the authoritative message and date.
		detail.CommitSummary = c

		record := &model.AnalyticsRecord{
			ProjectID:     project.ID,
			Contributor:   req.Contributor,
			CommitSHA:     c.SHA,
			CommitMessage: c.Message,
			CommitDate:    c.Date,
			Assessment:    s.scorer.Score(ctx, *detail, model.ProjectContext{Name: project.Name}),
		}
		if err := s.records.CreateAnalytics(ctx, record); err != nil {
			return nil, fmt.Errorf("storing analysis of %s: %w", c.SHA, err)
		}
		results = append(results, *record)
	}

	s.logger.Info("commits analyzed",
		slog.String("projectID", project.ID),
		slog.String("contributor", req.Contributor),
		slog.Int("listed", len(commits)),
		slog.Int("analyzed", len(results)),
	)

	return &AnalyzeResult{
		Message:   fmt.Sprintf("Analyzed %d commits", len(results)),
		Analytics: results,
	}, nil
}

// ListByProject returns every analytics record of the project.
func (s *AnalyticsService) ListByProject(ctx context.Context, userID, projectID string) ([]model.AnalyticsRecord, error) {
	if _, err := s.guard.RequireOwnership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	records, err := s.records.ListAnalyticsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing analytics: %w", err)
	}
	return records, nil
}

// ContributorSummary averages one contributor's records in the project.
func (s *AnalyticsService) ContributorSummary(ctx context.Context, userID, projectID, contributor string) (*ContributorSummary, error) {
	all, err := s.ListByProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	mine := make([]model.AnalyticsRecord, 0)
	for _, r := range all {
		if r.Contributor == contributor {
			mine = append(mine, r)
		}
	}

	return &ContributorSummary{
		Contributor:  contributor,
		TotalCommits: len(mine),
		Scores:       AverageScores(mine),
		Analytics:    mine,
	}, nil
}

// ProjectInsights averages all of the project's records and asks the scorer
// for team-level insights. With no records it answers without the LLM.
func (s *AnalyticsService) ProjectInsights(ctx context.Context, userID, projectID string) (*ProjectInsights, error) {
	all, err := s.ListByProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return &ProjectInsights{Insights: noDataInsights(), Scores: model.Scores{}}, nil
	}

	avg := AverageScores(all)
	return &ProjectInsights{
		Insights: s.scorer.Insights(ctx, avg, len(all)),
		Scores:   avg,
	}, nil
}
