// Package llm selects and invokes the chat model that writes summaries and
// timesheet remarks.
package llm

import (
	"context"
	"slices"
	"strings"
)

type Provider string

const (
	ProviderAzure  Provider = "azure"
	ProviderOpenAI Provider = "openai"
	ProviderGrok   Provider = "grok"
	ProviderGemini Provider = "gemini"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderAzure, ProviderOpenAI, ProviderGrok, ProviderGemini}

// ParseProvider resolves name case-insensitively. Unknown names produce a
// *DegradedError naming the provider.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Providers, p) {
		return p, nil
	}
	return "", &DegradedError{
		Provider: string(p),
		Reason:   "Unsupported LLM Provider: " + string(p),
	}
}

func (p Provider) String() string {
	return string(p)
}

// Generator turns a single user prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
