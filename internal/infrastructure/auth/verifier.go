// Package auth identifies callers. Verification of real identity tokens is a
// deployment concern; the engine only needs a stable owner id per caller so
// saved credentials can be scoped.
package auth

import (
	"context"
	"strings"
	"sync"
)

// Principal is an authenticated caller.
type Principal struct {
	ID string
}

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// AnonymousVerifier accepts nothing: every caller stays anonymous. This is
// the default for deployments without an identity provider.
type AnonymousVerifier struct{}

func (AnonymousVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	return nil, nil
}

// StaticVerifier maps opaque tokens to owner ids. Suitable for small
// deployments and tests.
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> owner id
}

func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticVerifier{tokens: cp}
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	v.mu.RLock()
	owner, ok := v.tokens[token]
	v.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &Principal{ID: owner}, nil
}
