package scorer

import (
	"fmt"
	"strings"

	"github.com/sakif/devpulse/internal/model"
)

const (
	reviewerPersona = "You are an expert code reviewer and software engineering mentor. " +
		"Analyze commits objectively and provide constructive feedback. Always return valid JSON."

	techLeadPersona = "You are a technical lead providing actionable insights to improve team performance. " +
		"Always return valid JSON."
)

func commitPrompt(c model.CommitDetail, p model.ProjectContext) string {
	var files strings.Builder
	if len(c.Files) == 0 {
		files.WriteString("No files data\n")
	}
	for _, f := range c.Files {
		fmt.Fprintf(&files, "- %s (+%d, -%d)\n", f.Filename, f.Additions, f.Deletions)
	}

	patch := c.PatchExcerpt
	if patch == "" {
		patch = "No patch data available"
	}

	return fmt.Sprintf(`Analyze this Git commit and provide a detailed assessment:

Repository: %s
Commit Author: %s
Commit Message: %s
Files Changed: %d
Additions: +%d
Deletions: -%d

Changed Files:
%s
Commit Details:
%s

Please analyze this commit and provide:
1. Code Quality Score (0-100): Based on code structure, naming conventions, and best practices
2. Impact Score (0-100): Based on the significance and scope of changes
3. Documentation Score (0-100): Based on commit message quality and code comments
4. Testing Score (0-100): Based on test coverage and testing practices evident in the commit
5. Overall Score (0-100): Weighted average of all scores
6. Key Strengths: List 2-3 positive aspects
7. Areas for Improvement: List 2-3 suggestions
8. Summary: Brief 2-3 sentence assessment

Return your analysis in this exact JSON format:
{
  "codeQuality": 85,
  "impact": 70,
  "documentation": 60,
  "testing": 75,
  "overall": 72,
  "strengths": ["Clear commit message", "Good code structure"],
  "improvements": ["Add more test coverage", "Include inline comments"],
  "summary": "Solid commit with clean code and clear intent. Would benefit from additional documentation."
}`,
		p.Name, c.Author, c.Message, len(c.Files), c.Stats.Additions, c.Stats.Deletions,
		files.String(), patch)
}

func insightsPrompt(avg model.Scores, count int) string {
	return fmt.Sprintf(`Based on this team's development analytics, provide insights:

Average Scores:
- Code Quality: %d/100
- Impact: %d/100
- Documentation: %d/100
- Testing: %d/100
- Overall: %d/100

Total Commits Analyzed: %d

Provide:
1. Team Strengths (2-3 points)
2. Areas to Focus On (2-3 points)
3. Actionable Recommendations (2-3 points)

Return in JSON format:
{
  "strengths": ["High code quality", "Strong documentation"],
  "focusAreas": ["Improve test coverage", "Increase commit frequency"],
  "recommendations": ["Implement peer review process", "Create coding standards doc"]
}`,
		avg.CodeQuality, avg.Impact, avg.Documentation, avg.Testing, avg.Overall, count)
}
