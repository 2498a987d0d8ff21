package model

import "time"

// Scores are the five 0-100 quality dimensions of a commit. The same shape
// carries team-level averages.
type Scores struct {
	CodeQuality   int `json:"codeQuality" validate:"gte=0,lte=100"`
	Impact        int `json:"impact" validate:"gte=0,lte=100"`
	Documentation int `json:"documentation" validate:"gte=0,lte=100"`
	Testing       int `json:"testing" validate:"gte=0,lte=100"`
	Overall       int `json:"overall" validate:"gte=0,lte=100"`
}

// Assessment is what the commit scorer produces for one commit.
// Error is set when the scores are the fixed fallback rather than a real
// analysis.
type Assessment struct {
	Scores
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	Summary      string    `json:"summary"`
	Error        bool      `json:"error,omitempty"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
}

// AnalyticsRecord is one analyzed commit. Records are append-only.
type AnalyticsRecord struct {
	ID            string `json:"id"`
	ProjectID     string `json:"projectId"`
	Contributor   string `json:"contributor"`
	CommitSHA     string `json:"commitSha"`
	CommitMessage string `json:"commitMessage"`
	CommitDate    string `json:"commitDate"`
	Assessment
	CreatedAt time.Time `json:"createdAt"`
}

// Insights are team-level observations derived from a project's scores.
type Insights struct {
	Strengths       []string `json:"strengths"`
	FocusAreas      []string `json:"focusAreas"`
	Recommendations []string `json:"recommendations"`
}
