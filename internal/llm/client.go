package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/xtruder/bookmark-curator/internal/x"
)

// OpenAIClient talks to any OpenAI compatible chat endpoint, Ollama's /v1
// included.
type OpenAIClient struct {
	client  *openai.Client
	cache   x.Cache
	model   string
	prompts *Prompts
}

func NewOpenAIClient(apiKey, baseURL, model string, httpClient *http.Client, cache x.Cache, prompts *Prompts) (*OpenAIClient, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cache == nil {
		cache = x.NopCache{}
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIClient{
		client:  client,
		cache:   cache,
		model:   model,
		prompts: prompts,
	}, nil
}

// Ping lists the endpoint's models and checks the configured one is there.
// Endpoints that do not list it are only warned about.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	for _, m := range page.Data {
		if m.ID == c.model {
			slog.Info("classifier endpoint ready", "model", c.model)
			return nil
		}
	}

	slog.Warn("model not listed by endpoint", "model", c.model, "available", len(page.Data))
	return nil
}

func (c *OpenAIClient) callLLM(ctx context.Context, prompt *Prompt, data any) (string, error) {
	user, err := prompt.Render(data)
	if err != nil {
		return "", err
	}

	// Try cache first
	key := x.Key(c.model, prompt.System, user)
	if cached, ok := c.cache.Get(key); ok {
		slog.Debug("using cached LLM response", "prompt", prompt.Name)
		return cached, nil
	}

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(user),
		}),
		Model:       openai.F(c.model),
		Temperature: openai.F(prompt.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	response := strings.TrimSpace(chatCompletion.Choices[0].Message.Content)
	response = strings.TrimPrefix(response, "```json\n")
	response = strings.TrimPrefix(response, "```\n")
	response = strings.TrimSuffix(response, "\n```")

	// Cache the result
	if err := c.cache.Set(key, response); err != nil {
		slog.Warn("failed to cache LLM response", "error", err)
	}

	return response, nil
}
