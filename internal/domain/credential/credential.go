// Package credential models how a request names the API key it wants to use
// and resolves that reference into a usable secret.
package credential

import (
	"context"
	"fmt"
	"strings"

	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/utils/platformerrors"
)

// SourceKind discriminates the credential reference sum type.
type SourceKind string

const (
	SourceExplicit SourceKind = "explicit" // secret supplied verbatim on the request
	SourceSaved    SourceKind = "saved"    // fetched from the external key store
	SourceDefault  SourceKind = "default"  // server-side fallback for the provider
)

// Reference names the credential a request wants to use. Immutable once
// constructed. Priority is structural: an explicit secret always wins over a
// saved key, which wins over the default. There is no fallback chain: an
// explicit-but-invalid secret fails instead of silently masking user error.
type Reference struct {
	Kind   SourceKind
	Secret string // set only for SourceExplicit
	KeyID  string // set only for SourceSaved
}

// Store is the external saved-key collaborator. Decryption happens entirely
// on the store's side; the engine only ever sees plaintext or a typed failure.
type Store interface {
	// GetDecrypted returns the plaintext secret for (ownerID, keyID).
	// Unknown ids and ids belonging to another owner both yield NOT_FOUND.
	GetDecrypted(ctx context.Context, ownerID, keyID string) (string, error)
}

// AnonymousOwner is the owner id assigned to unauthenticated requests.
const AnonymousOwner = "anonymous"

// placeholderTokens are sentinel substrings used in example configuration.
// A key containing any of them is syntactically present but not a real secret.
var placeholderTokens = []string{
	"your_", "_here", "xxx", "placeholder", "change_me", "your-secret-key", "demo",
}

// IsPlaceholder reports whether the secret matches a known placeholder
// pattern (case-insensitive substring match).
func IsPlaceholder(secret string) bool {
	lowered := strings.ToLower(secret)
	for _, token := range placeholderTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// Resolver turns a Reference into a usable secret or a typed failure.
type Resolver struct {
	store    Store
	defaults map[model.ProviderKind]string
}

func NewResolver(store Store, defaults map[model.ProviderKind]string) *Resolver {
	return &Resolver{store: store, defaults: defaults}
}

// Resolve returns the plaintext secret for the reference. Every returned
// secret has passed placeholder detection, so a sentinel key fails fast here
// instead of reaching the provider and failing opaquely.
func (r *Resolver) Resolve(ctx context.Context, ref Reference, provider model.ProviderKind, ownerID string) (string, error) {
	var secret string

	switch ref.Kind {
	case SourceExplicit:
		if strings.TrimSpace(ref.Secret) == "" {
			return "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeValidation,
				"explicit credential reference has an empty secret",
				nil, "c9a4e6d2-7b13-4f8e-a0d5-2e9c81b6f432")
		}
		secret = ref.Secret

	case SourceSaved:
		if ownerID == "" || ownerID == AnonymousOwner {
			return "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeAuthRequired,
				"saved credentials require an authenticated owner",
				nil, "f1d82c4a-55e0-4a3b-bd17-8a64c0e3921d")
		}
		if r.store == nil {
			return "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeInternal,
				"no credential store configured",
				nil, "0b7e3f19-c2d6-4861-9e44-d35a16f8b27c")
		}
		stored, err := r.store.GetDecrypted(ctx, ownerID, ref.KeyID)
		if err != nil {
			return "", platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "fetch saved credential")
		}
		secret = stored

	case SourceDefault:
		secret = r.defaults[provider]
		if strings.TrimSpace(secret) == "" {
			return "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeAuthInvalid,
				fmt.Sprintf("no server credential configured for provider %q - supply your own key", provider),
				nil, "6a91df03-84b7-4c2e-bf58-7e20c4d1a965")
		}

	default:
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported credential source %q", ref.Kind),
			nil, "3e5b90c7-12fd-4a68-8cb3-f47d6091e2aa")
	}

	if IsPlaceholder(secret) {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypePlaceholderKey,
			fmt.Sprintf("credential for provider %q is a placeholder value - replace it with a real key", provider),
			nil, "8d46b1e9-30a2-4c7f-95d8-61f3c28a0b54")
	}

	return secret, nil
}
