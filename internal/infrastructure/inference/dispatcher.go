package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/logger"
	"prompteval-server/internal/infrastructure/metrics"
	"prompteval-server/internal/utils/platformerrors"
)

// Request is one model call as the domain layer sees it: abstract model id
// plus a credential reference, before any resolution has happened.
type Request struct {
	Model        model.ID
	Credential   credential.Reference
	OwnerID      string
	SystemPrompt string
	UserInput    string
}

const (
	defaultMaxRetries = 2
	defaultRetryBase  = time.Second
)

// Dispatcher resolves model and credential, picks the provider adapter, and
// retries transient failures with exponential backoff. Credential and request
// shape failures are never retried.
type Dispatcher struct {
	catalog  *model.Catalog
	resolver *credential.Resolver
	adapters map[model.ProviderKind]Adapter
	timeout  time.Duration

	maxRetries uint64
	retryBase  time.Duration
}

func NewDispatcher(catalog *model.Catalog, resolver *credential.Resolver, adapters []Adapter, timeout time.Duration) *Dispatcher {
	byKind := make(map[model.ProviderKind]Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	return &Dispatcher{
		catalog:    catalog,
		resolver:   resolver,
		adapters:   byKind,
		timeout:    timeout,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
	}
}

// Dispatch performs one model call end to end. The returned envelope always
// comes from a single successful attempt; partial attempts leave no trace
// beyond metrics and logs.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Envelope, error) {
	entry, err := d.catalog.Lookup(req.Model)
	if err != nil {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeUnknownModel,
			fmt.Sprintf("model %q is not in the catalog", req.Model),
			err, "2d80f4b6-91ce-47a3-b5e8-06d2c7a1f935",
			map[string]any{"model": string(req.Model)})
	}

	secret, err := d.resolver.Resolve(ctx, req.Credential, entry.Provider, req.OwnerID)
	if err != nil {
		return nil, err
	}

	adapter, ok := d.adapters[entry.Provider]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			fmt.Sprintf("no adapter registered for provider %q", entry.Provider),
			nil, "7b34e0d9-5a12-4cf8-86b7-c91f2e06d548")
	}

	inv := Invocation{
		ProviderModel: entry.ProviderModel,
		Secret:        secret,
		SystemPrompt:  req.SystemPrompt,
		UserInput:     req.UserInput,
		Timeout:       d.timeout,
	}

	var envelope *Envelope
	operation := func() error {
		start := time.Now()
		result, invokeErr := adapter.Invoke(ctx, inv)
		metrics.LLMDuration.WithLabelValues(string(req.Model), string(entry.Provider)).
			Observe(time.Since(start).Seconds())
		if invokeErr != nil {
			d.recordFailure(entry.Provider, invokeErr)
			if !platformerrors.IsTransient(invokeErr) {
				return backoff.Permanent(invokeErr)
			}
			return invokeErr
		}
		envelope = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.retryBase
	policy.Multiplier = 2

	log := logger.GetLogger()
	notify := func(retryErr error, _ time.Duration) {
		metrics.ProviderRetriesTotal.WithLabelValues(string(entry.Provider)).Inc()
		log.Warn().
			Err(retryErr).
			Str("model", string(req.Model)).
			Str("provider", string(entry.Provider)).
			Msg("retrying transient provider failure")
	}

	if err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, d.maxRetries), ctx),
		notify); err != nil {
		return nil, err
	}

	metrics.TokensPromptTotal.WithLabelValues(string(req.Model), string(entry.Provider)).
		Add(float64(envelope.TokensIn))
	metrics.TokensCompletionTotal.WithLabelValues(string(req.Model), string(entry.Provider)).
		Add(float64(envelope.TokensOut))

	return envelope, nil
}

func (d *Dispatcher) recordFailure(provider model.ProviderKind, err error) {
	errorType := "unknown"
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		errorType = string(platformErr.Type)
	}
	metrics.ProviderErrorsTotal.WithLabelValues(string(provider), errorType).Inc()
}
