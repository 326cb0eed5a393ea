// Package inference talks to upstream model providers. One adapter per vendor
// wire format; the dispatcher in front of them owns model resolution,
// credential resolution and retries.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/utils/platformerrors"
)

// Invocation is a single fully-resolved model call: concrete provider model
// name, plaintext secret, and the two prompt turns.
type Invocation struct {
	ProviderModel string
	Secret        string
	SystemPrompt  string
	UserInput     string
	Timeout       time.Duration
}

// Envelope is the normalized result of a model call.
type Envelope struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Adapter translates an Invocation into one vendor's wire format.
type Adapter interface {
	Kind() model.ProviderKind
	Invoke(ctx context.Context, inv Invocation) (*Envelope, error)
}

const maxErrorBodyPreview = 500

// classifyStatus maps an upstream HTTP failure onto the error taxonomy. The
// transient kinds are the only ones the dispatcher will retry.
func classifyStatus(ctx context.Context, provider model.ProviderKind, status int, body string) error {
	preview := strings.TrimSpace(body)
	if len(preview) > maxErrorBodyPreview {
		preview = preview[:maxErrorBodyPreview]
	}
	fields := map[string]any{
		"provider": string(provider),
		"status":   status,
		"body":     preview,
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeAuthInvalid,
			fmt.Sprintf("provider %s rejected the credential", provider),
			nil, "4f21c6d8-9a03-4b7e-8c15-d2e670a9f341", fields)
	case status == http.StatusTooManyRequests:
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeRateLimited,
			fmt.Sprintf("provider %s rate limited the request", provider),
			nil, "a8e35f02-6d41-49cb-b7a9-3c08e1d5f627", fields)
	case status >= http.StatusInternalServerError:
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeProviderUnavailable,
			fmt.Sprintf("provider %s returned status %d", provider, status),
			nil, "c7d09b14-2e86-4f53-a1c0-58fb9e246d73", fields)
	default:
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			fmt.Sprintf("provider %s returned unexpected status %d", provider, status),
			nil, "1e64a2f7-8b05-4dc9-93e1-b72c4f0a85d6", fields)
	}
}

// classifyTransport maps a transport-level failure. A deadline becomes TIMEOUT
// so callers can retry it; everything else is the provider being unreachable.
func classifyTransport(ctx context.Context, provider model.ProviderKind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeTimeout,
			fmt.Sprintf("provider %s call timed out", provider),
			err, "90b3d5c8-47f1-4e2a-86d9-0a51ce7b2f48")
	}
	if errors.Is(err, context.Canceled) {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			fmt.Sprintf("provider %s call cancelled", provider),
			err, "5c8e1a90-d246-4b7f-9c03-e6f17d48a25b")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeProviderUnavailable,
		fmt.Sprintf("provider %s unreachable", provider),
		err, "f2a70c36-1b95-48ed-ae42-7d90c5e83b16")
}

// emptyContent is the shared failure for a 200 with no usable text in it.
func emptyContent(ctx context.Context, provider model.ProviderKind) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeMalformedResponse,
		fmt.Sprintf("provider %s returned a response with no content", provider),
		nil, "d61f8b29-0c47-4a3e-95d8-12ca76e0f493")
}
