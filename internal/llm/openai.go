package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

const temperature = 0.7

// chatClient talks to any OpenAI-compatible chat completions endpoint:
// OpenAI itself, Azure OpenAI deployments and xAI Grok.
type chatClient struct {
	provider Provider
	model    string
	cli      openai.Client
}

func newChatClient(provider Provider, model string, httpClient *http.Client, opts ...option.RequestOption) *chatClient {
	opts = append(opts, option.WithMaxRetries(0))
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &chatClient{
		provider: provider,
		model:    model,
		cli:      openai.NewClient(opts...),
	}
}

func newOpenAIClient(provider Provider, apiKey, baseURL, model string, httpClient *http.Client) *chatClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return newChatClient(provider, model, httpClient, opts...)
}

func newAzureClient(apiKey, endpoint, deployment, apiVersion string, httpClient *http.Client) *chatClient {
	return newChatClient(ProviderAzure, deployment, httpClient,
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	)
}

func (c *chatClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", classify(c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", classify(c.provider, errors.New("no choices in completion response"))
	}
	return resp.Choices[0].Message.Content, nil
}
