package eval

import (
	"context"
	"strings"
	"testing"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/utils/platformerrors"
)

// stubDispatcher routes every dispatch through a single function so tests can
// script model behavior by inspecting the outgoing user input.
type stubDispatcher struct {
	calls int
	fn    func(req inference.Request) (*inference.Envelope, error)
}

func (s *stubDispatcher) Dispatch(ctx context.Context, req inference.Request) (*inference.Envelope, error) {
	s.calls++
	return s.fn(req)
}

func judgeReply(body string) func(req inference.Request) (*inference.Envelope, error) {
	return func(req inference.Request) (*inference.Envelope, error) {
		return &inference.Envelope{Text: body, TokensIn: 10, TokensOut: 5}, nil
	}
}

func TestExactScoreNormalization(t *testing.T) {
	cases := []struct {
		expected, actual string
		want             float64
	}{
		{"Hello World", "hello   world", 1.0},
		{"  Bonjour\n", "bonjour", 1.0},
		{"same", "same", 1.0},
	}
	for _, tc := range cases {
		if got := exactScore(tc.expected, tc.actual); got != tc.want {
			t.Errorf("exactScore(%q, %q) = %v, want %v", tc.expected, tc.actual, got, tc.want)
		}
	}
}

func TestExactScorePenalizesDivergence(t *testing.T) {
	score := exactScore("the quick brown fox", "a completely different sentence")
	if score < 0 || score >= PassThreshold {
		t.Fatalf("divergent outputs must score below the pass threshold, got %v", score)
	}

	near := exactScore("the quick brown fox", "the quick brown foxes")
	if near <= score {
		t.Fatalf("near-identical output (%v) must outscore divergent output (%v)", near, score)
	}
}

func TestJudgeScoreParsesVerdict(t *testing.T) {
	d := &stubDispatcher{fn: judgeReply(`{"score": 0.85, "reasoning": "very close meaning"}`)}
	s := NewScorer(d, "judge-model")

	score, reasoning, usage, err := s.Score(context.Background(), ScoreGPTJudge, TestCase{Expected: "x"}, "y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0.85 || reasoning != "very close meaning" {
		t.Fatalf("unexpected verdict: %v %q", score, reasoning)
	}
	if usage.InputTokens != 10 || usage.OutputTokens != 5 {
		t.Fatalf("judge tokens not accounted: %+v", usage)
	}
}

func TestJudgeScoreClamped(t *testing.T) {
	d := &stubDispatcher{fn: judgeReply(`{"score": 1.7, "reasoning": "overenthusiastic"}`)}
	s := NewScorer(d, "judge-model")

	score, _, _, err := s.Score(context.Background(), ScoreGPTJudge, TestCase{Expected: "x"}, "y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("score must be clamped to 1.0, got %v", score)
	}
}

func TestJudgeScoreProseVerdictIsMalformed(t *testing.T) {
	d := &stubDispatcher{fn: judgeReply(`I would rate this a solid nine out of ten.`)}
	s := NewScorer(d, "judge-model")

	score, _, _, err := s.Score(context.Background(), ScoreGPTJudge, TestCase{Expected: "x"}, "y")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformedResponse) {
		t.Fatalf("expected MALFORMED_RESPONSE, got %v", err)
	}
	if score != 0 {
		t.Fatalf("a broken verdict must not yield a score, got %v", score)
	}
}

func TestHybridSkipsJudgeOnExactMatch(t *testing.T) {
	d := &stubDispatcher{fn: judgeReply(`{"score": 0.1, "reasoning": "should not be called"}`)}
	s := NewScorer(d, "judge-model")

	score, _, _, err := s.Score(context.Background(), ScoreHybrid, TestCase{Expected: "Bonjour"}, "bonjour")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("expected 1.0, got %v", score)
	}
	if d.calls != 0 {
		t.Fatal("hybrid must not call the judge for an exact textual match")
	}
}

func TestHybridTakesMaxOfBranches(t *testing.T) {
	d := &stubDispatcher{fn: judgeReply(`{"score": 0.9, "reasoning": "same meaning"}`)}
	s := NewScorer(d, "judge-model")

	// textually distant but semantically equivalent: judge branch wins
	score, reasoning, _, err := s.Score(context.Background(), ScoreHybrid,
		TestCase{Expected: "It is raining heavily"}, "A major downpour is underway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0.9 || reasoning != "same meaning" {
		t.Fatalf("expected judge branch to win, got %v %q", score, reasoning)
	}
	if d.calls != 1 {
		t.Fatalf("expected exactly one judge call, got %d", d.calls)
	}
}

func TestHybridStrictBranchWins(t *testing.T) {
	d := &stubDispatcher{fn: judgeReply(`{"score": 0.2, "reasoning": "judge disagrees"}`)}
	s := NewScorer(d, "judge-model")

	expected := "the quick brown fox jumps over the lazy dog"
	actual := "the quick brown fox jumps over the lazy dogs"
	score, reasoning, _, err := s.Score(context.Background(), ScoreHybrid, TestCase{Expected: expected}, actual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score <= 0.2 {
		t.Fatalf("strict branch should win with a high ratio, got %v", score)
	}
	if !strings.Contains(reasoning, "textual similarity") {
		t.Fatalf("unexpected reasoning %q", reasoning)
	}
}

func TestJudgeUsesServerCredential(t *testing.T) {
	var captured inference.Request
	d := &stubDispatcher{fn: func(req inference.Request) (*inference.Envelope, error) {
		captured = req
		return &inference.Envelope{Text: `{"score": 0.5, "reasoning": "ok"}`}, nil
	}}
	s := NewScorer(d, "judge-model")

	_, _, _, err := s.Score(context.Background(), ScoreGPTJudge, TestCase{Expected: "x"}, "y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Model != "judge-model" {
		t.Fatalf("judge call must target the configured judge model, got %q", captured.Model)
	}
	if captured.Credential.Kind != credential.SourceDefault {
		t.Fatalf("judge call must use the server credential, got %+v", captured.Credential)
	}
}
