package service

import "github.com/sakif/devpulse/internal/model"

// AverageScores is the per-dimension mean of the records' scores, each
// rounded half up. No records means all zeros.
func AverageScores(records []model.AnalyticsRecord) model.Scores {
	n := len(records)
	if n == 0 {
		return model.Scores{}
	}

	var sum model.Scores
	for _, r := range records {
		sum.CodeQuality += r.CodeQuality
		sum.Impact += r.Impact
		sum.Documentation += r.Documentation
		sum.Testing += r.Testing
		sum.Overall += r.Overall
	}

	return model.Scores{
		CodeQuality:   roundHalfUp(sum.CodeQuality, n),
		Impact:        roundHalfUp(sum.Impact, n),
		Documentation: roundHalfUp(sum.Documentation, n),
		Testing:       roundHalfUp(sum.Testing, n),
		Overall:       roundHalfUp(sum.Overall, n),
	}
}

// roundHalfUp computes round(sum/n) in integers. Scores are never negative.
func roundHalfUp(sum, n int) int {
	return (2*sum + n) / (2 * n)
}
