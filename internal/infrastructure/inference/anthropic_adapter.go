package inference

import (
	"context"
	"strings"

	"resty.dev/v3"

	"prompteval-server/internal/domain/model"
)

const anthropicVersion = "2023-06-01"

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AnthropicAdapter speaks the messages API. The system turn is a top level
// field rather than a message, and auth rides in X-API-Key.
type AnthropicAdapter struct {
	client    *resty.Client
	baseURL   string
	maxTokens int
}

func NewAnthropicAdapter(client *resty.Client, baseURL string) *AnthropicAdapter {
	return &AnthropicAdapter{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxTokens: 4096,
	}
}

func (a *AnthropicAdapter) Kind() model.ProviderKind { return model.ProviderAnthropic }

func (a *AnthropicAdapter) Invoke(ctx context.Context, inv Invocation) (*Envelope, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	reqBody := anthropicRequest{
		Model:     inv.ProviderModel,
		MaxTokens: a.maxTokens,
		System:    inv.SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: inv.UserInput},
		},
	}

	var respBody anthropicResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", inv.Secret).
		SetHeader("Anthropic-Version", anthropicVersion).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(a.baseURL + "/messages")
	if err != nil {
		return nil, classifyTransport(ctx, a.Kind(), err)
	}
	if resp.IsError() {
		return nil, classifyStatus(ctx, a.Kind(), resp.StatusCode(), resp.String())
	}

	var text strings.Builder
	for _, block := range respBody.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, emptyContent(ctx, a.Kind())
	}

	return &Envelope{
		Text:      text.String(),
		TokensIn:  respBody.Usage.InputTokens,
		TokensOut: respBody.Usage.OutputTokens,
	}, nil
}
