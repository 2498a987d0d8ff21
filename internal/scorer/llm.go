package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"

	"github.com/sakif/devpulse/internal/model"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Completer is the slice of the OpenAI client the scorer needs.
// *openai.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config selects the model endpoint. Empty BaseURL and Model use the defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LLM scores commits with a chat-completion model.
type LLM struct {
	client   Completer
	model    string
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewLLM builds an LLM scorer backed by go-openai.
func NewLLM(cfg Config, logger *slog.Logger) *LLM {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return NewWithCompleter(openai.NewClientWithConfig(oc), cfg.Model, logger)
}

// NewWithCompleter builds an LLM scorer over any Completer.
func NewWithCompleter(client Completer, modelName string, logger *slog.Logger) *LLM {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &LLM{
		client:   client,
		model:    modelName,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// assessmentPayload is the JSON object the model is asked to return.
// Scores are pointers so a missing field fails "required" while 0 stays legal;
// they are floats because models sometimes answer 72.5.
type assessmentPayload struct {
	CodeQuality   *float64 `json:"codeQuality" validate:"required,gte=0,lte=100"`
	Impact        *float64 `json:"impact" validate:"required,gte=0,lte=100"`
	Documentation *float64 `json:"documentation" validate:"required,gte=0,lte=100"`
	Testing       *float64 `json:"testing" validate:"required,gte=0,lte=100"`
	Overall       *float64 `json:"overall" validate:"required,gte=0,lte=100"`
	Strengths     []string `json:"strengths" validate:"required,min=1,dive,required"`
	Improvements  []string `json:"improvements" validate:"required,min=1,dive,required"`
	Summary       string   `json:"summary" validate:"required"`
}

type insightsPayload struct {
	Strengths       []string `json:"strengths" validate:"required,min=1,dive,required"`
	FocusAreas      []string `json:"focusAreas" validate:"required,min=1,dive,required"`
	Recommendations []string `json:"recommendations" validate:"required,min=1,dive,required"`
}

// Score asks the model to assess one commit. It never fails: any problem
// along the way yields FallbackAssessment.
func (l *LLM) Score(ctx context.Context, commit model.CommitDetail, project model.ProjectContext) model.Assessment {
	var p assessmentPayload
	outcome, err := l.complete(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewerPersona},
			{Role: openai.ChatMessageRoleUser, Content: commitPrompt(commit, project)},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	}, &p)
	recordResult(opScore, outcome)
	if err != nil {
		l.logger.Warn("commit analysis failed, using fallback",
			slog.String("sha", commit.SHA),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return FallbackAssessment(l.now())
	}

	return model.Assessment{
		Scores: model.Scores{
			CodeQuality:   roundScore(*p.CodeQuality),
			Impact:        roundScore(*p.Impact),
			Documentation: roundScore(*p.Documentation),
			Testing:       roundScore(*p.Testing),
			Overall:       roundScore(*p.Overall),
		},
		Strengths:    p.Strengths,
		Improvements: p.Improvements,
		Summary:      p.Summary,
		AnalyzedAt:   l.now(),
	}
}

// Insights asks the model for team-level observations on averaged scores.
func (l *LLM) Insights(ctx context.Context, averages model.Scores, commitCount int) model.Insights {
	var p insightsPayload
	outcome, err := l.complete(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: techLeadPersona},
			{Role: openai.ChatMessageRoleUser, Content: insightsPrompt(averages, commitCount)},
		},
		Temperature: 0.5,
		MaxTokens:   500,
	}, &p)
	recordResult(opInsights, outcome)
	if err != nil {
		l.logger.Warn("insights generation failed, using fallback",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return FallbackInsights()
	}
	return model.Insights{
		Strengths:       p.Strengths,
		FocusAreas:      p.FocusAreas,
		Recommendations: p.Recommendations,
	}
}

var errEmptyResponse = errors.New("scorer: model returned no content")

// complete runs one chat completion and decodes the reply into out, which
// must be a pointer to a validated payload struct. It reports the outcome
// label alongside the error.
func (l *LLM) complete(ctx context.Context, req openai.ChatCompletionRequest, out any) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return outcomeTransport, fmt.Errorf("scorer: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return outcomeEmpty, errEmptyResponse
	}

	candidates := jsonCandidates(resp.Choices[0].Message.Content)
	if len(candidates) == 0 {
		return outcomeParse, errors.New("scorer: no JSON object in reply")
	}

	// The first candidate that decodes and validates wins. A reply where
	// something decoded but nothing validated is reported as invalid.
	outcome := outcomeParse
	var lastErr error
	target := reflect.ValueOf(out).Elem()
	for _, raw := range candidates {
		target.SetZero()
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			if outcome == outcomeParse {
				lastErr = fmt.Errorf("scorer: decoding reply: %w", err)
			}
			continue
		}
		if err := l.validate.Struct(out); err != nil {
			outcome, lastErr = outcomeInvalid, fmt.Errorf("scorer: reply failed validation: %w", err)
			continue
		}
		return outcomeOK, nil
	}
	return outcome, lastErr
}

// roundScore rounds half up. Validation already bounds v to [0, 100].
func roundScore(v float64) int {
	return int(math.Floor(v + 0.5))
}
