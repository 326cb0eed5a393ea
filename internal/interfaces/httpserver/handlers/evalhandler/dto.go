package evalhandler

import (
	"fmt"
	"regexp"
	"strings"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/domain/eval"
)

const (
	minPromptLength   = 10
	maxPromptLength   = 10000
	maxDomainLength   = 100
	maxExpectedLength = 5000
	defaultNumCases   = 5
)

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)

// CredentialDTO names the API key a request wants to use.
type CredentialDTO struct {
	Type   string `json:"type"`
	Secret string `json:"secret,omitempty"`
	KeyID  string `json:"key_id,omitempty"`
}

// EvaluateRequest is the wire shape of POST /v1/evaluate.
type EvaluateRequest struct {
	Prompt          string         `json:"prompt"`
	Domain          string         `json:"domain,omitempty"`
	Model           string         `json:"model,omitempty"`
	NumCases        int            `json:"num_cases,omitempty"`
	ScoreMethod     string         `json:"score_method,omitempty"`
	ExampleExpected string         `json:"example_expected,omitempty"`
	Credential      *CredentialDTO `json:"credential,omitempty"`
}

// EnhanceRequest is the wire shape of POST /v1/enhance.
type EnhanceRequest struct {
	Prompt     string         `json:"prompt"`
	Domain     string         `json:"domain,omitempty"`
	Model      string         `json:"model,omitempty"`
	AutoRetest bool           `json:"auto_retest,omitempty"`
	Credential *CredentialDTO `json:"credential,omitempty"`
}

// validatePrompt normalizes and checks a prompt. The brace balance checks
// reject inputs that would likely break the instruction templates the prompt
// gets embedded into.
func validatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if len(prompt) < minPromptLength {
		return "", fmt.Errorf("prompt must be at least %d characters long", minPromptLength)
	}
	if len(prompt) > maxPromptLength {
		return "", fmt.Errorf("prompt must not exceed %d characters", maxPromptLength)
	}

	prompt = strings.Join(strings.Fields(prompt), " ")

	if strings.Count(prompt, "{") != strings.Count(prompt, "}") {
		return "", fmt.Errorf("unbalanced braces detected")
	}
	if strings.Count(prompt, "[") != strings.Count(prompt, "]") {
		return "", fmt.Errorf("unbalanced brackets detected")
	}
	return prompt, nil
}

func validateDomain(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", nil
	}
	if len(domain) > maxDomainLength {
		return "", fmt.Errorf("domain must not exceed %d characters", maxDomainLength)
	}
	if !domainPattern.MatchString(domain) {
		return "", fmt.Errorf("domain contains invalid characters")
	}
	return domain, nil
}

func validateExampleExpected(example string) (string, error) {
	example = strings.TrimSpace(example)
	if len(example) > maxExpectedLength {
		return "", fmt.Errorf("example_expected must not exceed %d characters", maxExpectedLength)
	}
	return example, nil
}

func validateNumCases(n, max int) (int, error) {
	if n == 0 {
		return defaultNumCases, nil
	}
	if n < 1 || n > max {
		return 0, fmt.Errorf("num_cases must be between 1 and %d", max)
	}
	return n, nil
}

// toReference maps the wire credential to the domain sum type. A missing
// credential means the server's own key.
func (d *CredentialDTO) toReference() (credential.Reference, error) {
	if d == nil {
		return credential.Reference{Kind: credential.SourceDefault}, nil
	}
	switch credential.SourceKind(d.Type) {
	case credential.SourceExplicit:
		if strings.TrimSpace(d.Secret) == "" {
			return credential.Reference{}, fmt.Errorf("explicit credential requires a secret")
		}
		return credential.Reference{Kind: credential.SourceExplicit, Secret: d.Secret}, nil
	case credential.SourceSaved:
		if strings.TrimSpace(d.KeyID) == "" {
			return credential.Reference{}, fmt.Errorf("saved credential requires a key_id")
		}
		return credential.Reference{Kind: credential.SourceSaved, KeyID: d.KeyID}, nil
	case credential.SourceDefault, "":
		return credential.Reference{Kind: credential.SourceDefault}, nil
	}
	return credential.Reference{}, fmt.Errorf("unsupported credential type %q", d.Type)
}

type evaluateResponse struct {
	RequestID string `json:"request_id"`
	*eval.EvaluationReport
}

type enhanceResponse struct {
	RequestID string `json:"request_id"`
	*eval.EnhancementReport
}
