// Package scorer assesses commits and project score histories with an LLM.
//
// Scoring never fails from the caller's point of view: when the model cannot
// be reached, or answers with something that is not a well-formed assessment,
// the scorer returns a fixed fallback record flagged with Error=true.
package scorer

import (
	"context"
	"time"

	"github.com/sakif/devpulse/internal/model"
)

// Scorer produces commit assessments and team insights.
type Scorer interface {
	Score(ctx context.Context, commit model.CommitDetail, project model.ProjectContext) model.Assessment
	Insights(ctx context.Context, averages model.Scores, commitCount int) model.Insights
}

// FallbackScore is the neutral score used when a commit cannot be analyzed.
const FallbackScore = 50

// FallbackAssessment is the record returned when analysis fails.
func FallbackAssessment(at time.Time) model.Assessment {
	return model.Assessment{
		Scores: model.Scores{
			CodeQuality:   FallbackScore,
			Impact:        FallbackScore,
			Documentation: FallbackScore,
			Testing:       FallbackScore,
			Overall:       FallbackScore,
		},
		Strengths:    []string{"Commit submitted"},
		Improvements: []string{"Analysis unavailable"},
		Summary:      "Unable to analyze commit at this time.",
		Error:        true,
		AnalyzedAt:   at,
	}
}

// FallbackInsights is returned when team insights cannot be generated.
func FallbackInsights() model.Insights {
	return model.Insights{
		Strengths:       []string{"Active development"},
		FocusAreas:      []string{"Continue current practices"},
		Recommendations: []string{"Keep up the good work"},
	}
}

// Offline is the Scorer used when no LLM credentials are configured.
// Every call returns the fallback.
type Offline struct {
	now func() time.Time
}

func NewOffline() *Offline {
	return &Offline{now: func() time.Time { return time.Now().UTC() }}
}

func (o *Offline) Score(ctx context.Context, commit model.CommitDetail, project model.ProjectContext) model.Assessment {
	recordResult(opScore, outcomeUnconfigured)
	return FallbackAssessment(o.now())
}

func (o *Offline) Insights(ctx context.Context, averages model.Scores, commitCount int) model.Insights {
	recordResult(opInsights, outcomeUnconfigured)
	return FallbackInsights()
}
