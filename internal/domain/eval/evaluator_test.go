package eval

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"prompteval-server/internal/infrastructure/inference"
)

// pipelineStub answers the generation call with a fixed suite and echoes a
// scripted output for each case execution.
type pipelineStub struct {
	mu       sync.Mutex
	suite    string
	outputs  map[string]string // case input -> actual output
	failFor  map[string]bool   // case input -> dispatch error
	latency  map[string]time.Duration
	executed []string
}

func (s *pipelineStub) Dispatch(ctx context.Context, req inference.Request) (*inference.Envelope, error) {
	if strings.Contains(req.UserInput, "You are a test case generator") {
		return &inference.Envelope{Text: s.suite, TokensIn: 40, TokensOut: 20}, nil
	}

	// case execution: the user turn is "<prompt>\n\nInput: <case input>"
	_, input, _ := strings.Cut(req.UserInput, "\n\nInput: ")
	if d := s.latency[input]; d > 0 {
		time.Sleep(d)
	}

	s.mu.Lock()
	s.executed = append(s.executed, input)
	s.mu.Unlock()

	if s.failFor[input] {
		return nil, context.DeadlineExceeded
	}
	return &inference.Envelope{Text: s.outputs[input], TokensIn: 7, TokensOut: 3}, nil
}

const translationSuite = `[
	{"input": "Hello", "expected": "Bonjour"},
	{"input": "Goodbye", "expected": "Au revoir"},
	{"input": "Thank you", "expected": "Merci"}
]`

func newTestEvaluator(d Dispatcher, concurrency int) *Evaluator {
	return NewEvaluator(d, NewGenerator(d), NewScorer(d, "judge-model"), concurrency)
}

func TestEvaluateFullPipeline(t *testing.T) {
	stub := &pipelineStub{
		suite: translationSuite,
		outputs: map[string]string{
			"Hello":     "Bonjour",
			"Goodbye":   "Au revoir",
			"Thank you": "De rien", // wrong answer
		},
	}
	e := newTestEvaluator(stub, 5)

	report, err := e.Evaluate(context.Background(), testIdentity(), EvaluationParams{
		Prompt:      "Translate to French",
		Model:       "gpt-4o",
		NumCases:    3,
		ScoreMethod: ScoreExactMatch,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalCases != 3 {
		t.Fatalf("expected 3 cases, got %d", report.TotalCases)
	}
	if report.PassedCases != 2 {
		t.Fatalf("expected 2 passed cases, got %d", report.PassedCases)
	}
	if report.TestResults[0].Score != 1.0 || report.TestResults[1].Score != 1.0 {
		t.Fatalf("correct answers must score 1.0: %+v", report.TestResults[:2])
	}
	if report.TestResults[2].Score >= PassThreshold {
		t.Fatalf("wrong answer must fail: %+v", report.TestResults[2])
	}

	wantMean := (report.TestResults[0].Score + report.TestResults[1].Score + report.TestResults[2].Score) / 3
	if report.OverallScore != wantMean {
		t.Fatalf("overall score %v is not the mean %v", report.OverallScore, wantMean)
	}

	// generation tokens plus three case executions
	if report.TokenUsage.InputTokens != 40+3*7 || report.TokenUsage.OutputTokens != 20+3*3 {
		t.Fatalf("token usage not fully accounted: %+v", report.TokenUsage)
	}
	if report.ExecutionTime <= 0 {
		t.Fatal("execution time must be positive")
	}
}

func TestEvaluatePreservesCaseOrderUnderConcurrency(t *testing.T) {
	stub := &pipelineStub{
		suite: translationSuite,
		outputs: map[string]string{
			"Hello":     "Bonjour",
			"Goodbye":   "Au revoir",
			"Thank you": "Merci",
		},
		latency: map[string]time.Duration{
			"Hello":   30 * time.Millisecond, // first case finishes last
			"Goodbye": 10 * time.Millisecond,
		},
	}
	e := newTestEvaluator(stub, 3)

	report, err := e.Evaluate(context.Background(), testIdentity(), EvaluationParams{
		Prompt:      "Translate to French",
		Model:       "gpt-4o",
		NumCases:    3,
		ScoreMethod: ScoreExactMatch,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inputs := []string{
		report.TestResults[0].TestCase.Input,
		report.TestResults[1].TestCase.Input,
		report.TestResults[2].TestCase.Input,
	}
	if inputs[0] != "Hello" || inputs[1] != "Goodbye" || inputs[2] != "Thank you" {
		t.Fatalf("results must follow generation order, got %v", inputs)
	}
}

func TestEvaluateEmbedsCaseFailures(t *testing.T) {
	stub := &pipelineStub{
		suite: translationSuite,
		outputs: map[string]string{
			"Hello":     "Bonjour",
			"Thank you": "Merci",
		},
		failFor: map[string]bool{"Goodbye": true},
	}
	e := newTestEvaluator(stub, 2)

	report, err := e.Evaluate(context.Background(), testIdentity(), EvaluationParams{
		Prompt:      "Translate to French",
		Model:       "gpt-4o",
		NumCases:    3,
		ScoreMethod: ScoreExactMatch,
	})
	if err != nil {
		t.Fatalf("case failure must not fail the run: %v", err)
	}

	failed := report.TestResults[1]
	if failed.Score != 0 {
		t.Fatalf("failed case must score zero: %+v", failed)
	}
	if !strings.HasPrefix(failed.ActualOutput, "Error:") {
		t.Fatalf("failed case output must carry the error: %q", failed.ActualOutput)
	}
	if !strings.Contains(failed.Reasoning, "execution failed") {
		t.Fatalf("failed case reasoning must say execution failed: %q", failed.Reasoning)
	}
	if report.PassedCases != 2 || report.TotalCases != 3 {
		t.Fatalf("aggregates wrong: %+v", report)
	}
}

func TestEvaluateCancellationReturnsNoReport(t *testing.T) {
	stub := &pipelineStub{
		suite: translationSuite,
		outputs: map[string]string{
			"Hello":     "Bonjour",
			"Goodbye":   "Au revoir",
			"Thank you": "Merci",
		},
		latency: map[string]time.Duration{
			"Hello":     200 * time.Millisecond,
			"Goodbye":   200 * time.Millisecond,
			"Thank you": 200 * time.Millisecond,
		},
	}
	e := newTestEvaluator(stub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	report, err := e.Evaluate(ctx, testIdentity(), EvaluationParams{
		Prompt:      "Translate to French",
		Model:       "gpt-4o",
		NumCases:    3,
		ScoreMethod: ScoreExactMatch,
	})
	if err == nil {
		t.Fatal("cancellation mid-run must fail the evaluation")
	}
	if report != nil {
		t.Fatalf("cancelled run must not return a partial report: %+v", report)
	}
}

func TestEvaluateGenerationFailureIsFatal(t *testing.T) {
	stub := &pipelineStub{suite: "not json at all"}
	e := newTestEvaluator(stub, 2)

	_, err := e.Evaluate(context.Background(), testIdentity(), EvaluationParams{
		Prompt:      "Translate to French",
		Model:       "gpt-4o",
		NumCases:    3,
		ScoreMethod: ScoreExactMatch,
	})
	if err == nil {
		t.Fatal("generation failure must fail the run")
	}
	if len(stub.executed) != 0 {
		t.Fatal("no cases may execute when generation fails")
	}
}
