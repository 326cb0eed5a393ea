package eval

import (
	"context"
	"strings"
	"testing"

	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/utils/platformerrors"
)

const enhanceReply = `{
	"enhanced_prompt": "You are a professional translator. Translate the given English text to French. Output only the translation.",
	"improvements": ["added role definition", "specified output format"]
}`

type enhanceStub struct {
	pipelineStub
	enhanceText string
}

func (s *enhanceStub) Dispatch(ctx context.Context, req inference.Request) (*inference.Envelope, error) {
	if strings.Contains(req.UserInput, "You are a prompt engineering expert") {
		return &inference.Envelope{Text: s.enhanceText, TokensIn: 60, TokensOut: 80}, nil
	}
	return s.pipelineStub.Dispatch(ctx, req)
}

func newTestEnhancer(d Dispatcher) *Enhancer {
	return NewEnhancer(d, NewEvaluator(d, NewGenerator(d), NewScorer(d, "judge-model"), 5))
}

func TestEnhanceWithoutRetest(t *testing.T) {
	stub := &enhanceStub{enhanceText: enhanceReply}
	e := newTestEnhancer(stub)

	report, err := e.Enhance(context.Background(), testIdentity(), EnhancementParams{
		Prompt: "Translate to French",
		Model:  "gpt-4o",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(report.EnhancedPrompt, "You are a professional translator.") {
		t.Fatalf("unexpected enhanced prompt: %q", report.EnhancedPrompt)
	}
	if len(report.Improvements) != 2 {
		t.Fatalf("expected 2 improvements, got %v", report.Improvements)
	}
	if report.TestResults != nil {
		t.Fatal("no retest requested, report must not carry one")
	}
	if report.TokenUsage.InputTokens != 60 || report.TokenUsage.OutputTokens != 80 {
		t.Fatalf("token usage not accounted: %+v", report.TokenUsage)
	}
	if report.OriginalPrompt != "Translate to French" {
		t.Fatalf("original prompt must be echoed back: %q", report.OriginalPrompt)
	}
}

func TestEnhanceWithAutoRetest(t *testing.T) {
	stub := &enhanceStub{
		enhanceText: enhanceReply,
		pipelineStub: pipelineStub{
			suite: `[
				{"input": "Hello", "expected": "Bonjour"},
				{"input": "Goodbye", "expected": "Au revoir"},
				{"input": "Thank you", "expected": "Merci"},
				{"input": "Please", "expected": "S'il vous plait"},
				{"input": "Yes", "expected": "Oui"}
			]`,
			outputs: map[string]string{
				"Hello":     "Bonjour",
				"Goodbye":   "Au revoir",
				"Thank you": "Merci",
				"Please":    "S'il vous plait",
				"Yes":       "Oui",
			},
		},
	}
	e := newTestEnhancer(stub)

	report, err := e.Enhance(context.Background(), testIdentity(), EnhancementParams{
		Prompt:     "Translate to French",
		Model:      "gpt-4o",
		AutoRetest: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TestResults == nil {
		t.Fatal("auto retest must attach an evaluation report")
	}
	if report.TestResults.Prompt != report.EnhancedPrompt {
		t.Fatal("retest must evaluate the enhanced prompt, not the original")
	}
	if report.TestResults.TotalCases != 5 || report.TestResults.PassedCases != 5 {
		t.Fatalf("unexpected retest aggregates: %+v", report.TestResults)
	}
	if report.TestResults.ScoreMethod != ScoreHybrid {
		t.Fatalf("retest must use hybrid scoring, got %q", report.TestResults.ScoreMethod)
	}

	// enhancement call tokens plus everything the retest consumed
	wantIn := 60 + report.TestResults.TokenUsage.InputTokens
	wantOut := 80 + report.TestResults.TokenUsage.OutputTokens
	if report.TokenUsage.InputTokens != wantIn || report.TokenUsage.OutputTokens != wantOut {
		t.Fatalf("retest tokens not rolled up: %+v", report.TokenUsage)
	}
}

func TestEnhanceUnparsableIsTerminal(t *testing.T) {
	stub := &enhanceStub{enhanceText: "Here are some thoughts on improving your prompt..."}
	e := newTestEnhancer(stub)

	_, err := e.Enhance(context.Background(), testIdentity(), EnhancementParams{
		Prompt: "Translate to French",
		Model:  "gpt-4o",
	})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnparsableOutput) {
		t.Fatalf("expected UNPARSABLE_OUTPUT, got %v", err)
	}
}

func TestEnhanceEmptyPromptIsMalformed(t *testing.T) {
	stub := &enhanceStub{enhanceText: `{"enhanced_prompt": "   ", "improvements": []}`}
	e := newTestEnhancer(stub)

	_, err := e.Enhance(context.Background(), testIdentity(), EnhancementParams{
		Prompt: "Translate to French",
		Model:  "gpt-4o",
	})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformedResponse) {
		t.Fatalf("expected MALFORMED_RESPONSE, got %v", err)
	}
}
