package eval

import (
	"context"
	"strings"
	"time"

	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/infrastructure/logger"
	"prompteval-server/internal/utils/jsonextract"
	"prompteval-server/internal/utils/platformerrors"
)

// EnhancementParams is one enhancement request after transport-level
// validation.
type EnhancementParams struct {
	Prompt     string
	Domain     string
	Model      model.ID
	AutoRetest bool
}

// retestCases is the suite size used when re-evaluating an enhanced prompt.
const retestCases = 5

// Enhancer rewrites prompts with an instruction-following model and can
// optionally prove the rewrite by evaluating it.
type Enhancer struct {
	dispatcher Dispatcher
	evaluator  *Evaluator
}

func NewEnhancer(dispatcher Dispatcher, evaluator *Evaluator) *Enhancer {
	return &Enhancer{dispatcher: dispatcher, evaluator: evaluator}
}

type enhanceVerdict struct {
	EnhancedPrompt string   `json:"enhanced_prompt"`
	Improvements   []string `json:"improvements"`
}

// Enhance rewrites the prompt. Enhancement is not best-effort: an unusable
// model response fails the operation rather than returning the original
// prompt dressed up as enhanced.
func (e *Enhancer) Enhance(ctx context.Context, id Identity, p EnhancementParams) (*EnhancementReport, error) {
	start := time.Now()

	env, err := e.dispatcher.Dispatch(ctx, inference.Request{
		Model:      p.Model,
		Credential: id.Credential,
		OwnerID:    id.OwnerID,
		UserInput:  buildEnhancementPrompt(p.Prompt, p.Domain),
	})
	if err != nil {
		return nil, err
	}

	report := &EnhancementReport{
		OriginalPrompt: p.Prompt,
		Model:          p.Model,
	}
	report.TokenUsage.add(env)

	verdict, err := jsonextract.Object[enhanceVerdict](ctx, env.Text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(verdict.EnhancedPrompt) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeMalformedResponse,
			"model returned an empty enhanced prompt",
			nil, "9e27c4a8-6b50-4d13-8f6e-a1d3027c95b4")
	}
	report.EnhancedPrompt = verdict.EnhancedPrompt
	report.Improvements = verdict.Improvements
	if report.Improvements == nil {
		report.Improvements = []string{}
	}

	if p.AutoRetest {
		retest, err := e.evaluator.Evaluate(ctx, id, EvaluationParams{
			Prompt:      verdict.EnhancedPrompt,
			Domain:      p.Domain,
			Model:       p.Model,
			NumCases:    retestCases,
			ScoreMethod: ScoreHybrid,
		})
		if err != nil {
			return nil, err
		}
		report.TestResults = retest
		report.TokenUsage.InputTokens += retest.TokenUsage.InputTokens
		report.TokenUsage.OutputTokens += retest.TokenUsage.OutputTokens
	}

	report.ExecutionTime = time.Since(start).Seconds()

	log := logger.GetLogger()
	log.Info().
		Str("model", string(p.Model)).
		Int("improvements", len(report.Improvements)).
		Bool("auto_retest", p.AutoRetest).
		Float64("execution_time", report.ExecutionTime).
		Msg("enhancement complete")

	return report, nil
}
