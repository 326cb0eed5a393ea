package eval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/infrastructure/logger"
	"prompteval-server/internal/infrastructure/metrics"
)

// EvaluationParams is one evaluation request after transport-level validation.
type EvaluationParams struct {
	Prompt          string
	Domain          string
	Model           model.ID
	NumCases        int
	ScoreMethod     ScoreMethod
	ExampleExpected string
}

// Evaluator runs the three phase pipeline: generate cases, execute them
// against the prompt, aggregate the scores.
type Evaluator struct {
	dispatcher  Dispatcher
	generator   *Generator
	scorer      *Scorer
	concurrency int64
}

func NewEvaluator(dispatcher Dispatcher, generator *Generator, scorer *Scorer, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Evaluator{
		dispatcher:  dispatcher,
		generator:   generator,
		scorer:      scorer,
		concurrency: int64(concurrency),
	}
}

// Evaluate runs the full pipeline. A single case failing to execute or score
// becomes a zero-score result inside the report; only generation failure or
// cancellation fails the run as a whole.
func (e *Evaluator) Evaluate(ctx context.Context, id Identity, p EvaluationParams) (*EvaluationReport, error) {
	start := time.Now()
	log := logger.GetLogger()

	cases, usage, err := e.generator.Generate(ctx, id, p.Model, p.Prompt, p.Domain, p.NumCases, p.ExampleExpected)
	if err != nil {
		return nil, err
	}

	results := make([]TestResult, len(cases))
	sem := semaphore.NewWeighted(e.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex // guards usage

	for i, tc := range cases {
		if acquireErr := sem.Acquire(ctx, 1); acquireErr != nil {
			wg.Wait()
			return nil, acquireErr
		}
		wg.Add(1)
		go func(i int, tc TestCase) {
			defer wg.Done()
			defer sem.Release(1)

			result, caseUsage := e.runCase(ctx, id, p, tc)
			results[i] = result

			mu.Lock()
			usage.InputTokens += caseUsage.InputTokens
			usage.OutputTokens += caseUsage.OutputTokens
			mu.Unlock()
		}(i, tc)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	report := &EvaluationReport{
		Prompt:      p.Prompt,
		Model:       p.Model,
		ScoreMethod: p.ScoreMethod,
		TestResults: results,
		TotalCases:  len(results),
		TokenUsage:  usage,
	}
	var total float64
	for _, r := range results {
		total += r.Score
		if r.Passed() {
			report.PassedCases++
		}
	}
	if len(results) > 0 {
		report.OverallScore = total / float64(len(results))
	}
	report.ExecutionTime = time.Since(start).Seconds()

	metrics.EvaluationScore.WithLabelValues(string(p.Model), string(p.ScoreMethod)).
		Observe(report.OverallScore)
	metrics.EvaluationCases.WithLabelValues(string(p.Model)).Observe(float64(report.TotalCases))

	log.Info().
		Str("model", string(p.Model)).
		Str("score_method", string(p.ScoreMethod)).
		Int("total_cases", report.TotalCases).
		Int("passed_cases", report.PassedCases).
		Float64("overall_score", report.OverallScore).
		Float64("execution_time", report.ExecutionTime).
		Msg("evaluation complete")

	return report, nil
}

// runCase executes one case and scores it. Failures never escape: they are
// encoded as a zero-score result so the rest of the suite still counts.
func (e *Evaluator) runCase(ctx context.Context, id Identity, p EvaluationParams, tc TestCase) (TestResult, TokenUsage) {
	var usage TokenUsage

	env, err := e.dispatcher.Dispatch(ctx, inference.Request{
		Model:      p.Model,
		Credential: id.Credential,
		OwnerID:    id.OwnerID,
		UserInput:  buildCaseInput(p.Prompt, tc),
	})
	if err != nil {
		return TestResult{
			TestCase:     tc,
			ActualOutput: fmt.Sprintf("Error: %v", err),
			Score:        0,
			Reasoning:    fmt.Sprintf("execution failed: %v", err),
		}, usage
	}
	usage.add(env)

	score, reasoning, judgeUsage, err := e.scorer.Score(ctx, p.ScoreMethod, tc, env.Text)
	usage.InputTokens += judgeUsage.InputTokens
	usage.OutputTokens += judgeUsage.OutputTokens
	if err != nil {
		return TestResult{
			TestCase:     tc,
			ActualOutput: env.Text,
			Score:        0,
			Reasoning:    fmt.Sprintf("scoring failed: %v", err),
		}, usage
	}

	return TestResult{
		TestCase:     tc,
		ActualOutput: env.Text,
		Score:        score,
		Reasoning:    reasoning,
	}, usage
}
