// Package jsonextract recovers typed JSON values from model output that may
// wrap the payload in code fences, surround it with prose, or return a lone
// object where an array was asked for.
package jsonextract

import (
	"context"
	"encoding/json"
	"strings"

	"prompteval-server/internal/utils/platformerrors"
)

const rawPreviewLimit = 2000

// Object parses a single JSON object of type T out of raw model output.
func Object[T any](ctx context.Context, raw string) (T, error) {
	var out T
	payload, ok := locateJSON(raw, '{')
	if !ok {
		return out, unparsable(ctx, raw, "no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, unparsable(ctx, raw, "model output is not a valid JSON object")
	}
	return out, nil
}

// Array parses a JSON array of T out of raw model output. A lone object is
// promoted to a one-element array, since models frequently collapse
// single-item lists.
func Array[T any](ctx context.Context, raw string) ([]T, error) {
	if payload, ok := locateJSON(raw, '['); ok {
		var out []T
		if err := json.Unmarshal([]byte(payload), &out); err == nil {
			return out, nil
		}
	}

	if payload, ok := locateJSON(raw, '{'); ok {
		var single T
		if err := json.Unmarshal([]byte(payload), &single); err == nil {
			return []T{single}, nil
		}
	}

	return nil, unparsable(ctx, raw, "no JSON array found in model output")
}

// locateJSON runs the ordered extraction chain and returns the first candidate
// span starting with the wanted opening bracket: the trimmed string itself,
// then the first fenced code block, then the first balanced span.
func locateJSON(raw string, open byte) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if trimmed[0] == open && json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	if fenced, ok := extractFencedBlock(trimmed); ok {
		if len(fenced) > 0 && fenced[0] == open && json.Valid([]byte(fenced)) {
			return fenced, true
		}
		// The fence may itself contain prose around the payload.
		if span, ok := extractBalancedSpan(fenced, open); ok {
			return span, true
		}
	}

	return extractBalancedSpan(trimmed, open)
}

// extractFencedBlock returns the content of the first ``` fence, tolerating an
// optional language tag on the opening line.
func extractFencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// Drop the language tag line ("json", "JSON", "") if present.
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		// Unterminated fence: take everything after the opening marker.
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) <= 16
}

// extractBalancedSpan scans for the first balanced {...} or [...] span,
// respecting string literals and escapes, and returns it if it is valid JSON.
func extractBalancedSpan(text string, open byte) (string, bool) {
	close := byte('}')
	if open == '[' {
		close = ']'
	}

	start := strings.IndexByte(text, open)
	for start != -1 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
				// skip structural chars inside strings
			case c == open:
				depth++
			case c == close:
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(text) // abandon this start position
				}
			}
		}
		next := strings.IndexByte(text[start+1:], open)
		if next == -1 {
			break
		}
		start = start + 1 + next
	}
	return "", false
}

// unparsable builds the typed failure, retaining the raw text for caller-side
// diagnostics. A silent empty default would hide a real generation failure.
func unparsable(ctx context.Context, raw, message string) error {
	preview := raw
	if len(preview) > rawPreviewLimit {
		preview = preview[:rawPreviewLimit]
	}
	return platformerrors.NewErrorWithContext(
		ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeUnparsableOutput,
		message,
		nil,
		"7c1f2a90-3f6e-4d25-9c02-1f5f0f4a9b11",
		map[string]any{"raw_output": preview},
	)
}
