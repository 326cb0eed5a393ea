package eval

import (
	"context"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/utils/jsonextract"
	"prompteval-server/internal/utils/platformerrors"
)

// Scorer compares a case's actual output against its expectation. The judge
// model is fixed at construction and billed to the server's own credential,
// independent of whatever key the caller used for the candidate model.
type Scorer struct {
	dispatcher Dispatcher
	judgeModel model.ID
}

func NewScorer(dispatcher Dispatcher, judgeModel model.ID) *Scorer {
	return &Scorer{dispatcher: dispatcher, judgeModel: judgeModel}
}

type judgeVerdict struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Score returns the case score in [0,1], a reasoning string (empty for pure
// textual scoring) and the tokens any judge call consumed.
func (s *Scorer) Score(ctx context.Context, method ScoreMethod, tc TestCase, actual string) (float64, string, TokenUsage, error) {
	var usage TokenUsage

	switch method {
	case ScoreExactMatch:
		score := exactScore(tc.Expected, actual)
		return score, "", usage, nil

	case ScoreGPTJudge:
		score, reasoning, usage, err := s.judgeScore(ctx, tc.Expected, actual)
		return score, reasoning, usage, err

	case ScoreHybrid:
		strict := exactScore(tc.Expected, actual)
		if strict == 1.0 {
			// textual equality needs no judge call
			return 1.0, "exact textual match", usage, nil
		}
		judged, reasoning, usage, err := s.judgeScore(ctx, tc.Expected, actual)
		if err != nil {
			return 0, "", usage, err
		}
		if strict > judged {
			return strict, "high textual similarity", usage, nil
		}
		return judged, reasoning, usage, nil
	}

	return 0, "", usage, nil
}

// exactScore is a pure textual comparison: case-insensitive, whitespace
// collapsed, then a Levenshtein ratio. Squaring the ratio punishes moderate
// divergence so that only near-identical outputs approach the pass threshold.
func exactScore(expected, actual string) float64 {
	e := normalizeText(expected)
	a := normalizeText(actual)
	if e == a {
		return 1.0
	}
	ratio := levenshtein.RatioForStrings([]rune(e), []rune(a), levenshtein.DefaultOptions)
	if ratio < 0 {
		ratio = 0
	}
	return ratio * ratio
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (s *Scorer) judgeScore(ctx context.Context, expected, actual string) (float64, string, TokenUsage, error) {
	var usage TokenUsage

	env, err := s.dispatcher.Dispatch(ctx, inference.Request{
		Model:      s.judgeModel,
		Credential: credential.Reference{Kind: credential.SourceDefault},
		OwnerID:    credential.AnonymousOwner,
		UserInput:  buildJudgePrompt(expected, actual),
	})
	if err != nil {
		return 0, "", usage, err
	}
	usage.add(env)

	verdict, err := jsonextract.Object[judgeVerdict](ctx, env.Text)
	if err != nil {
		// a verdict that cannot be read is a broken judge response, never a zero score
		return 0, "", usage, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeMalformedResponse,
			"judge returned no machine readable verdict",
			err, "4f8a2d61-9c3b-4e07-b6a5-d12e83f70c49",
			map[string]any{"judge_model": string(s.judgeModel)})
	}

	score := verdict.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, verdict.Reasoning, usage, nil
}
