package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"prompteval-server/internal/domain/model"
)

// OpenAIAdapter speaks the chat completions wire format. It reuses the
// go-openai request/response structs but drives the HTTP call itself so the
// base URL and key are per-invocation.
type OpenAIAdapter struct {
	client  *resty.Client
	baseURL string
}

func NewOpenAIAdapter(client *resty.Client, baseURL string) *OpenAIAdapter {
	return &OpenAIAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *OpenAIAdapter) Kind() model.ProviderKind { return model.ProviderOpenAI }

func (a *OpenAIAdapter) Invoke(ctx context.Context, inv Invocation) (*Envelope, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	reqBody := openai.ChatCompletionRequest{
		Model: inv.ProviderModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: inv.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: inv.UserInput},
		},
	}

	var respBody openai.ChatCompletionResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", inv.Secret)).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(a.baseURL + "/chat/completions")
	if err != nil {
		return nil, classifyTransport(ctx, a.Kind(), err)
	}
	if resp.IsError() {
		return nil, classifyStatus(ctx, a.Kind(), resp.StatusCode(), resp.String())
	}

	if len(respBody.Choices) == 0 || strings.TrimSpace(respBody.Choices[0].Message.Content) == "" {
		return nil, emptyContent(ctx, a.Kind())
	}

	return &Envelope{
		Text:      respBody.Choices[0].Message.Content,
		TokensIn:  respBody.Usage.PromptTokens,
		TokensOut: respBody.Usage.CompletionTokens,
	}, nil
}
