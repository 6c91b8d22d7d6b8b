package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/discord-ollama-bot/pkg/domain"
)

const defaultAPIKey = "ollama"

type client struct {
	api    *openai.Client
	models *modelCache
}

// NewClient connects to the OpenAI compatible endpoint of an Ollama server.
// baseURL is the server root, for example http://localhost:11434.
func NewClient(baseURL, apiKey string, modelCacheTTL time.Duration) (*client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is empty")
	}

	apiKey, _ = lo.Coalesce(apiKey, defaultAPIKey)
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = apiBaseURL(baseURL)

	c := &client{api: openai.NewClientWithConfig(cfg)}
	c.models = newModelCache(modelCacheTTL, c.ListModels)

	slog.Info("ollama client configured", "baseURL", cfg.BaseURL)

	return c, nil
}

func apiBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

// Chat runs a non-streaming chat completion and returns the reply text.
func (c *client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: lo.Map(messages, func(m domain.ChatMessage, _ int) openai.ChatCompletionMessage { return toChatCompletionMessage(m) }),
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func toChatCompletionMessage(m domain.ChatMessage) openai.ChatCompletionMessage {
	if len(m.Images) == 0 {
		return openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: m.Content}}
	for _, img := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: dataURL(img),
			},
		})
	}

	return openai.ChatCompletionMessage{Role: m.Role, MultiContent: parts}
}

func dataURL(img domain.Image) string {
	contentType, _, _ := strings.Cut(img.ContentType, ";")
	contentType, _ = lo.Coalesce(strings.TrimSpace(contentType), "image/png")
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ListModels returns the names of the models installed on the server.
func (c *client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	return lo.Map(resp.Models, func(m openai.Model, _ int) string { return m.ID }), nil
}

// SuggestModels returns cached model names containing query.
func (c *client) SuggestModels(ctx context.Context, query string) []string {
	return c.models.Suggest(ctx, query)
}
