// Package eval implements the evaluation engine: synthetic test generation,
// candidate execution, scoring and prompt enhancement.
package eval

import (
	"context"
	"fmt"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/inference"
)

// ScoreMethod selects how a case's actual output is compared to its
// expectation.
type ScoreMethod string

const (
	ScoreExactMatch ScoreMethod = "exact_match"
	ScoreGPTJudge   ScoreMethod = "gpt_judge"
	ScoreHybrid     ScoreMethod = "hybrid"
)

// ParseScoreMethod validates a wire value. Empty defaults to hybrid.
func ParseScoreMethod(s string) (ScoreMethod, error) {
	switch ScoreMethod(s) {
	case "":
		return ScoreHybrid, nil
	case ScoreExactMatch, ScoreGPTJudge, ScoreHybrid:
		return ScoreMethod(s), nil
	}
	return "", fmt.Errorf("unsupported score method %q", s)
}

// PassThreshold is the score at or above which a case counts as passed.
const PassThreshold = 0.8

// TestCase is one synthetic input/expectation pair.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// TestResult is the outcome of running one case against the prompt.
type TestResult struct {
	TestCase     TestCase `json:"test_case"`
	ActualOutput string   `json:"actual_output"`
	Score        float64  `json:"score"`
	Reasoning    string   `json:"reasoning,omitempty"`
}

// Passed reports whether the case scored at or above the pass threshold.
func (r TestResult) Passed() bool { return r.Score >= PassThreshold }

// TokenUsage accumulates provider token counts across every model call an
// operation made, including generation and judging.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u *TokenUsage) add(env *inference.Envelope) {
	u.InputTokens += env.TokensIn
	u.OutputTokens += env.TokensOut
}

// EvaluationReport is the full quantitative result of one evaluation run.
type EvaluationReport struct {
	Prompt        string       `json:"prompt"`
	Model         model.ID     `json:"model"`
	ScoreMethod   ScoreMethod  `json:"score_method"`
	TestResults   []TestResult `json:"test_results"`
	OverallScore  float64      `json:"overall_score"`
	TotalCases    int          `json:"total_cases"`
	PassedCases   int          `json:"passed_cases"`
	TokenUsage    TokenUsage   `json:"token_usage"`
	ExecutionTime float64      `json:"execution_time"` // seconds
}

// EnhancementReport is the result of one enhancement run, optionally with the
// evaluation of the enhanced prompt attached.
type EnhancementReport struct {
	OriginalPrompt string            `json:"original_prompt"`
	EnhancedPrompt string            `json:"enhanced_prompt"`
	Improvements   []string          `json:"improvements"`
	Model          model.ID          `json:"model"`
	TestResults    *EvaluationReport `json:"test_results,omitempty"`
	TokenUsage     TokenUsage        `json:"token_usage"`
	ExecutionTime  float64           `json:"execution_time"` // seconds
}

// Dispatcher is the single seam between the engine and the provider layer.
type Dispatcher interface {
	Dispatch(ctx context.Context, req inference.Request) (*inference.Envelope, error)
}

// Identity carries the per-request caller state every engine operation needs.
type Identity struct {
	Credential credential.Reference
	OwnerID    string
}
