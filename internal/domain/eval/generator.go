package eval

import (
	"context"
	"fmt"
	"strings"

	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/utils/jsonextract"
	"prompteval-server/internal/utils/platformerrors"
)

// Generator produces synthetic test cases for a prompt by asking a model to
// invent them.
type Generator struct {
	dispatcher Dispatcher
}

func NewGenerator(dispatcher Dispatcher) *Generator {
	return &Generator{dispatcher: dispatcher}
}

// Generate returns exactly numCases well-formed cases, or fails. A model that
// returns extra cases is truncated; one that returns too few usable ones is a
// hard error, because a silently smaller suite would skew the overall score.
func (g *Generator) Generate(ctx context.Context, id Identity, modelID model.ID, prompt, domain string, numCases int, exampleExpected string) ([]TestCase, TokenUsage, error) {
	var usage TokenUsage

	env, err := g.dispatcher.Dispatch(ctx, inference.Request{
		Model:      modelID,
		Credential: id.Credential,
		OwnerID:    id.OwnerID,
		UserInput:  buildGenerationPrompt(prompt, domain, numCases, exampleExpected),
	})
	if err != nil {
		return nil, usage, err
	}
	usage.add(env)

	raw, err := jsonextract.Array[TestCase](ctx, env.Text)
	if err != nil {
		return nil, usage, err
	}

	cases := make([]TestCase, 0, numCases)
	for _, tc := range raw {
		tc.Input = strings.TrimSpace(tc.Input)
		tc.Expected = strings.TrimSpace(tc.Expected)
		if tc.Input == "" || tc.Expected == "" {
			continue
		}
		cases = append(cases, tc)
		if len(cases) == numCases {
			break
		}
	}

	if len(cases) < numCases {
		return nil, usage, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInsufficientTestCases,
			fmt.Sprintf("model produced %d usable test cases, %d required", len(cases), numCases),
			nil, "3a86d5f1-0c29-4e74-b8d3-57fa92c6e018",
			map[string]any{"usable": len(cases), "requested": numCases, "returned": len(raw)})
	}

	return cases, usage, nil
}
