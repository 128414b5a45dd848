package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Afrawles/autum/internal/config"
	"github.com/Afrawles/autum/internal/metrics"
)

const defaultAzureAPIVersion = "2024-02-15-preview"

// Gateway builds provider clients from configuration. It never holds a
// client between calls.
type Gateway struct {
	cfg        config.LLMConfig
	logger     *slog.Logger
	httpClient *http.Client
	geminiURL  string
}

type Option func(*Gateway)

// WithHTTPClient routes every provider request through c.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithGeminiBaseURL overrides the Gemini API endpoint.
func WithGeminiBaseURL(u string) Option {
	return func(g *Gateway) {
		g.geminiURL = u
	}
}

func NewGateway(cfg config.LLMConfig, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DefaultProvider is the provider used when a request names none.
func (g *Gateway) DefaultProvider() string {
	if g.cfg.Provider == "" {
		return string(ProviderOpenAI)
	}
	return g.cfg.Provider
}

// Client returns a generator for the named provider. A blank name selects
// the configured default. Missing credentials and unknown names are reported
// as *DegradedError.
func (g *Gateway) Client(ctx context.Context, name string) (Generator, error) {
	if strings.TrimSpace(name) == "" {
		name = g.DefaultProvider()
	}
	p, err := ParseProvider(name)
	if err != nil {
		return nil, err
	}

	switch p {
	case ProviderAzure:
		az := g.cfg.Azure
		if az.APIKey == "" || az.Endpoint == "" {
			return nil, &DegradedError{Provider: string(p), Reason: "Azure OpenAI credentials not set."}
		}
		version := az.APIVersion
		if version == "" {
			version = defaultAzureAPIVersion
		}
		return newAzureClient(az.APIKey, az.Endpoint, az.Deployment, version, g.httpClient), nil

	case ProviderOpenAI:
		oa := g.cfg.OpenAI
		if oa.APIKey == "" {
			return nil, &DegradedError{Provider: string(p), Reason: "OpenAI API Key not set."}
		}
		return newOpenAIClient(p, oa.APIKey, oa.BaseURL, orDefault(oa.Model, "gpt-3.5-turbo"), g.httpClient), nil

	case ProviderGrok:
		gk := g.cfg.Grok
		if gk.APIKey == "" {
			return nil, &DegradedError{Provider: string(p), Reason: "Grok API Key not set."}
		}
		return newOpenAIClient(p, gk.APIKey, orDefault(gk.BaseURL, "https://api.x.ai/v1"),
			orDefault(gk.Model, "grok-4-latest"), g.httpClient), nil

	case ProviderGemini:
		gm := g.cfg.Gemini
		if gm.APIKey == "" {
			return nil, &DegradedError{Provider: string(p), Reason: "Gemini API Key not set."}
		}
		client, err := newGeminiClient(ctx, gm.APIKey, orDefault(gm.Model, "gemini-2.0-flash"), g.geminiURL, g.httpClient)
		if err != nil {
			return nil, classify(p, err)
		}
		return client, nil
	}

	return nil, &DegradedError{Provider: string(p), Reason: "Unsupported LLM Provider: " + string(p)}
}

// Generate resolves the provider and runs a single prompt through it.
func (g *Gateway) Generate(ctx context.Context, provider, prompt string) (string, error) {
	client, err := g.Client(ctx, provider)
	if err != nil {
		g.logger.Warn("llm client unavailable", "provider", provider, "error", err)
		return "", err
	}

	start := time.Now()
	text, err := client.Generate(ctx, prompt)
	elapsed := time.Since(start).Seconds()

	label := providerLabel(provider, g.DefaultProvider())
	if err != nil {
		metrics.RecordLLMRequest(label, outcome(err), elapsed)
		g.logger.Warn("llm invocation failed", "provider", label, "error", err)
		return "", err
	}
	metrics.RecordLLMRequest(label, "success", elapsed)
	g.logger.Debug("llm invocation succeeded", "provider", label, "duration_seconds", elapsed)
	return text, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	default:
		return "transport"
	}
}

func providerLabel(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
