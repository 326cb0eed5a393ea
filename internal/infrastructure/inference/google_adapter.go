package inference

import (
	"context"
	"fmt"
	"strings"

	"resty.dev/v3"

	"prompteval-server/internal/domain/model"
)

type googleRequest struct {
	SystemInstruction *googleContent  `json:"systemInstruction,omitempty"`
	Contents          []googleContent `json:"contents"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// GoogleAdapter speaks the generateContent API. Auth is a key query parameter,
// not a header.
type GoogleAdapter struct {
	client  *resty.Client
	baseURL string
}

func NewGoogleAdapter(client *resty.Client, baseURL string) *GoogleAdapter {
	return &GoogleAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *GoogleAdapter) Kind() model.ProviderKind { return model.ProviderGoogle }

func (a *GoogleAdapter) Invoke(ctx context.Context, inv Invocation) (*Envelope, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	reqBody := googleRequest{
		Contents: []googleContent{
			{Role: "user", Parts: []googlePart{{Text: inv.UserInput}}},
		},
	}
	if strings.TrimSpace(inv.SystemPrompt) != "" {
		reqBody.SystemInstruction = &googleContent{Parts: []googlePart{{Text: inv.SystemPrompt}}}
	}

	var respBody googleResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", inv.Secret).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, inv.ProviderModel))
	if err != nil {
		return nil, classifyTransport(ctx, a.Kind(), err)
	}
	if resp.IsError() {
		return nil, classifyStatus(ctx, a.Kind(), resp.StatusCode(), resp.String())
	}

	var text strings.Builder
	for _, candidate := range respBody.Candidates {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		break // only the first candidate is used
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, emptyContent(ctx, a.Kind())
	}

	return &Envelope{
		Text:      text.String(),
		TokensIn:  respBody.UsageMetadata.PromptTokenCount,
		TokensOut: respBody.UsageMetadata.CandidatesTokenCount,
	}, nil
}
