// Package model defines the abstract model identifiers callers use and their
// static mapping to concrete provider models.
package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderKind identifies an upstream model vendor family.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderGoogle    ProviderKind = "google"
)

// ID is the abstract model identifier callers put on requests. It is opaque to
// callers and maps to exactly one (provider, provider model name) pair.
type ID string

// Entry binds an abstract ID to its provider and the provider's own model name.
type Entry struct {
	ID            ID           `yaml:"id" json:"id"`
	Provider      ProviderKind `yaml:"provider" json:"provider"`
	ProviderModel string       `yaml:"provider_model" json:"provider_model"`
}

var ErrUnknownModel = errors.New("unknown model")

// Catalog is the static ID -> Entry mapping. It is configuration, not
// user-supplied data, and never changes after boot.
type Catalog struct {
	entries map[ID]Entry
	order   []ID
}

func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[ID]Entry, len(entries))}
	for _, e := range entries {
		if e.ID == "" || e.ProviderModel == "" {
			return nil, fmt.Errorf("catalog entry missing id or provider_model: %+v", e)
		}
		switch e.Provider {
		case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		default:
			return nil, fmt.Errorf("catalog entry %q has unsupported provider %q", e.ID, e.Provider)
		}
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.ID)
		}
		c.entries[e.ID] = e
		c.order = append(c.order, e.ID)
	}
	if len(c.order) == 0 {
		return nil, errors.New("catalog is empty")
	}
	return c, nil
}

// Lookup resolves an abstract ID. Unknown ids fail before any network call.
func (c *Catalog) Lookup(id ID) (Entry, error) {
	entry, ok := c.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return entry, nil
}

// List returns entries in their declaration order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// DefaultCatalog returns the compiled-in model mapping.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Entry{
		{ID: "gpt-4.1", Provider: ProviderOpenAI, ProviderModel: "gpt-4.1"},
		{ID: "gpt-4.1-mini", Provider: ProviderOpenAI, ProviderModel: "gpt-4.1-mini"},
		{ID: "gpt-4.1-nano", Provider: ProviderOpenAI, ProviderModel: "gpt-4.1-nano"},
		{ID: "gpt-4o", Provider: ProviderOpenAI, ProviderModel: "gpt-4o"},
		{ID: "gpt-4o-mini", Provider: ProviderOpenAI, ProviderModel: "gpt-4o-mini"},
		{ID: "o3", Provider: ProviderOpenAI, ProviderModel: "o3"},
		{ID: "o4-mini", Provider: ProviderOpenAI, ProviderModel: "o4-mini"},
		{ID: "claude-opus-4", Provider: ProviderAnthropic, ProviderModel: "claude-opus-4-20250514"},
		{ID: "claude-sonnet-4", Provider: ProviderAnthropic, ProviderModel: "claude-sonnet-4-20250514"},
		{ID: "claude-3-5-sonnet", Provider: ProviderAnthropic, ProviderModel: "claude-3-5-sonnet-20241022"},
		{ID: "claude-3-opus", Provider: ProviderAnthropic, ProviderModel: "claude-3-opus-20240229"},
		{ID: "claude-3-sonnet", Provider: ProviderAnthropic, ProviderModel: "claude-3-sonnet-20240229"},
		{ID: "gemini-2.5-pro", Provider: ProviderGoogle, ProviderModel: "gemini-2.5-pro"},
		{ID: "gemini-2.5-flash", Provider: ProviderGoogle, ProviderModel: "gemini-2.5-flash"},
		{ID: "gemini-2.0-flash", Provider: ProviderGoogle, ProviderModel: "gemini-2.0-flash-exp"},
	})
	if err != nil {
		panic(err) // compiled-in table, cannot fail
	}
	return c
}

// LoadCatalogFile replaces the compiled-in catalog with a YAML file of the
// same entry shape. Used for deployments that expose a different model set.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var doc struct {
		Models []Entry `yaml:"models"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return NewCatalog(doc.Models)
}
