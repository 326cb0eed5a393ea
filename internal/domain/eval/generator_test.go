package eval

import (
	"context"
	"strings"
	"testing"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/utils/platformerrors"
)

func testIdentity() Identity {
	return Identity{
		Credential: credential.Reference{Kind: credential.SourceDefault},
		OwnerID:    credential.AnonymousOwner,
	}
}

func TestGenerateParsesFencedArray(t *testing.T) {
	d := &stubDispatcher{fn: func(req inference.Request) (*inference.Envelope, error) {
		if !strings.Contains(req.UserInput, "Generate 2 diverse test cases") {
			t.Errorf("generation prompt missing case count: %q", req.UserInput)
		}
		return &inference.Envelope{Text: "Here you go:\n```json\n[\n" +
			`{"input": "Hello", "expected": "Bonjour"},` + "\n" +
			`{"input": "Goodbye", "expected": "Au revoir"}` + "\n]\n```",
			TokensIn: 50, TokensOut: 30}, nil
	}}
	g := NewGenerator(d)

	cases, usage, err := g.Generate(context.Background(), testIdentity(), "gpt-4o", "Translate to French", "", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Input != "Hello" || cases[0].Expected != "Bonjour" {
		t.Fatalf("unexpected first case: %+v", cases[0])
	}
	if usage.InputTokens != 50 || usage.OutputTokens != 30 {
		t.Fatalf("generation tokens not accounted: %+v", usage)
	}
}

func TestGenerateTruncatesExtraCases(t *testing.T) {
	d := &stubDispatcher{fn: func(req inference.Request) (*inference.Envelope, error) {
		return &inference.Envelope{Text: `[
			{"input": "a", "expected": "1"},
			{"input": "b", "expected": "2"},
			{"input": "c", "expected": "3"},
			{"input": "d", "expected": "4"}
		]`}, nil
	}}
	g := NewGenerator(d)

	cases, _, err := g.Generate(context.Background(), testIdentity(), "gpt-4o", "count", "", 3, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 3 {
		t.Fatalf("expected truncation to 3 cases, got %d", len(cases))
	}
}

func TestGenerateInsufficientCases(t *testing.T) {
	d := &stubDispatcher{fn: func(req inference.Request) (*inference.Envelope, error) {
		return &inference.Envelope{Text: `[
			{"input": "a", "expected": "1"},
			{"input": "", "expected": "blank input is unusable"},
			{"input": "c", "expected": "   "}
		]`}, nil
	}}
	g := NewGenerator(d)

	_, _, err := g.Generate(context.Background(), testIdentity(), "gpt-4o", "count", "", 3, "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeInsufficientTestCases) {
		t.Fatalf("expected INSUFFICIENT_TEST_CASES, got %v", err)
	}
}

func TestGeneratePropagatesUnparsableOutput(t *testing.T) {
	d := &stubDispatcher{fn: func(req inference.Request) (*inference.Envelope, error) {
		return &inference.Envelope{Text: "Sure! Let me think about some good test cases for you."}, nil
	}}
	g := NewGenerator(d)

	_, _, err := g.Generate(context.Background(), testIdentity(), "gpt-4o", "count", "", 3, "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnparsableOutput) {
		t.Fatalf("expected UNPARSABLE_OUTPUT, got %v", err)
	}
}

func TestGenerationPromptIncludesExampleSection(t *testing.T) {
	var captured string
	d := &stubDispatcher{fn: func(req inference.Request) (*inference.Envelope, error) {
		captured = req.UserInput
		return &inference.Envelope{Text: `[{"input": "a", "expected": "1"}]`}, nil
	}}
	g := NewGenerator(d)

	_, _, err := g.Generate(context.Background(), testIdentity(), "gpt-4o", "p", "finance", 1, "Total: $42.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(captured, "in the finance domain") {
		t.Error("domain context missing from generation prompt")
	}
	if !strings.Contains(captured, "Total: $42.00") {
		t.Error("example expected output missing from generation prompt")
	}
}
