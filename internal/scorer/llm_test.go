package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devpulse/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeCompleter returns a canned reply and remembers the last request.
type fakeCompleter struct {
	reply string
	err   error
	last  openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.reply == "" {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func newTestLLM(t *testing.T, f *fakeCompleter) *LLM {
	t.Helper()
	l := NewWithCompleter(f, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.now = func() time.Time { return fixedNow }
	return l
}

func sampleCommit() model.CommitDetail {
	return model.CommitDetail{
		CommitSummary: model.CommitSummary{SHA: "abc123", Message: "Add parser", Author: "Alice"},
		Stats:         model.CommitStats{Additions: 120, Deletions: 4, Total: 124},
		Files: []model.FileChange{
			{Filename: "parser.go", Additions: 100},
			{Filename: "parser_test.go", Additions: 20, Deletions: 4},
		},
		PatchExcerpt: "@@ -0,0 +1,100 @@",
	}
}

const goodReply = `{
  "codeQuality": 85,
  "impact": 70,
  "documentation": 60,
  "testing": 75,
  "overall": 72.5,
  "strengths": ["Clear commit message"],
  "improvements": ["Add inline comments"],
  "summary": "Solid commit."
}`

func TestScore_ParsesReply(t *testing.T) {
	f := &fakeCompleter{reply: goodReply}
	l := newTestLLM(t, f)

	got := l.Score(context.Background(), sampleCommit(), model.ProjectContext{Name: "devpulse"})

	assert.False(t, got.Error)
	assert.Equal(t, model.Scores{CodeQuality: 85, Impact: 70, Documentation: 60, Testing: 75, Overall: 73}, got.Scores)
	assert.Equal(t, []string{"Clear commit message"}, got.Strengths)
	assert.Equal(t, "Solid commit.", got.Summary)
	assert.Equal(t, fixedNow, got.AnalyzedAt)
}

func TestScore_SendsModelSettingsAndPrompt(t *testing.T) {
	f := &fakeCompleter{reply: goodReply}
	newTestLLM(t, f).Score(context.Background(), sampleCommit(), model.ProjectContext{Name: "devpulse"})

	assert.Equal(t, DefaultModel, f.last.Model)
	assert.InDelta(t, 0.3, f.last.Temperature, 1e-6)
	assert.Equal(t, 1000, f.last.MaxTokens)
	require.Len(t, f.last.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, f.last.Messages[0].Role)

	prompt := f.last.Messages[1].Content
	assert.Contains(t, prompt, "Repository: devpulse")
	assert.Contains(t, prompt, "Files Changed: 2")
	assert.Contains(t, prompt, "- parser_test.go (+20, -4)")
	assert.Contains(t, prompt, "@@ -0,0 +1,100 @@")
}

func TestScore_FencedReply(t *testing.T) {
	f := &fakeCompleter{reply: "Here you go:\n```json\n" + goodReply + "\n```\nHope this helps!"}

	got := newTestLLM(t, f).Score(context.Background(), sampleCommit(), model.ProjectContext{})

	assert.False(t, got.Error)
	assert.Equal(t, 85, got.CodeQuality)
}

func TestScore_SkipsBracesInProse(t *testing.T) {
	f := &fakeCompleter{reply: "Scores use the {0-100} scale. " + goodReply}

	got := newTestLLM(t, f).Score(context.Background(), sampleCommit(), model.ProjectContext{})

	assert.False(t, got.Error)
	assert.Equal(t, 85, got.CodeQuality)
	assert.Equal(t, 73, got.Overall)
}

func TestScore_FallsBack(t *testing.T) {
	tests := []struct {
		name    string
		f       *fakeCompleter
		outcome string
	}{
		{"transport error", &fakeCompleter{err: errors.New("connection refused")}, outcomeTransport},
		{"no choices", &fakeCompleter{}, outcomeEmpty},
		{"prose only", &fakeCompleter{reply: "I cannot analyze this commit."}, outcomeParse},
		{"broken JSON", &fakeCompleter{reply: `{"codeQuality": 85,`}, outcomeParse},
		{"wrong type", &fakeCompleter{reply: `{"codeQuality": "high"}`}, outcomeParse},
		{"score above 100", &fakeCompleter{reply: strings.Replace(goodReply, "85", "150", 1)}, outcomeInvalid},
		{"missing score", &fakeCompleter{reply: strings.Replace(goodReply, `"testing": 75,`, "", 1)}, outcomeInvalid},
		{"empty strengths", &fakeCompleter{reply: strings.Replace(goodReply, `["Clear commit message"]`, "[]", 1)}, outcomeInvalid},
		{"missing summary", &fakeCompleter{reply: strings.Replace(goodReply, `"Solid commit."`, `""`, 1)}, outcomeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := scorerResults.WithLabelValues(opScore, tt.outcome)
			before := testutil.ToFloat64(counter)

			got := newTestLLM(t, tt.f).Score(context.Background(), sampleCommit(), model.ProjectContext{})

			assert.Equal(t, FallbackAssessment(fixedNow), got)
			assert.True(t, got.Error)
			assert.Equal(t, 50, got.Overall)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestInsights(t *testing.T) {
	f := &fakeCompleter{reply: `{"strengths":["Tests"],"focusAreas":["Docs"],"recommendations":["Review"]}`}

	got := newTestLLM(t, f).Insights(context.Background(), model.Scores{Overall: 71}, 2)

	assert.Equal(t, model.Insights{
		Strengths:       []string{"Tests"},
		FocusAreas:      []string{"Docs"},
		Recommendations: []string{"Review"},
	}, got)
	assert.InDelta(t, 0.5, f.last.Temperature, 1e-6)
	assert.Contains(t, f.last.Messages[1].Content, "- Overall: 71/100")
	assert.Contains(t, f.last.Messages[1].Content, "Total Commits Analyzed: 2")
}

func TestInsights_FallsBack(t *testing.T) {
	f := &fakeCompleter{reply: `{"strengths":["Tests"]}`}

	got := newTestLLM(t, f).Insights(context.Background(), model.Scores{}, 1)

	assert.Equal(t, FallbackInsights(), got)
}

func TestOffline(t *testing.T) {
	o := NewOffline()

	a := o.Score(context.Background(), sampleCommit(), model.ProjectContext{})
	assert.True(t, a.Error)
	assert.Equal(t, []string{"Commit submitted"}, a.Strengths)
	assert.Equal(t, FallbackInsights(), o.Insights(context.Background(), model.Scores{}, 0))
}

// TestNewLLM_TalksToConfiguredEndpoint runs the real go-openai client
// against a fake OpenAI-compatible server.
func TestNewLLM_TalksToConfiguredEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "custom-model", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: goodReply}}},
		})
	}))
	defer srv.Close()

	l := NewLLM(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "custom-model"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := l.Score(context.Background(), sampleCommit(), model.ProjectContext{})
	assert.False(t, got.Error)
	assert.Equal(t, 70, got.Impact)
}
