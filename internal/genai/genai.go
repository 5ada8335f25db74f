// Package genai provides LLM completion using an OpenAI-compatible API.
//
// Completions are retried across an ordered list of candidate model
// identifiers: a "model unavailable" class of error advances to the next
// candidate, any other error is terminal.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// DefaultBaseURL points at the xAI OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.x.ai/v1"

// DefaultTemperature is used when no temperature is configured.
const DefaultTemperature = 0.3

// DefaultModels is the default ordered fallback list.
var DefaultModels = []string{"grok-3-mini", "grok-3", "grok-2-latest"}

// ClientInterface is the completion boundary consumed by the bot.
type ClientInterface interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// completionFunc performs one raw completion attempt against one model.
// Indirection exists so tests can exercise the fallback logic.
type completionFunc func(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error)

// Client wraps the OpenAI chat completion service with model fallback.
type Client struct {
	candidates  []string
	temperature float64
	complete    completionFunc
}

// NewClient initializes a new GenAI client.
func NewClient(apiKey, baseURL string, candidates []string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key not set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if len(candidates) == 0 {
		candidates = DefaultModels
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL))
	slog.Debug("GenAI client created", "baseURL", baseURL, "candidates", candidates)
	return &Client{
		candidates:  candidates,
		temperature: DefaultTemperature,
		complete: func(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
			resp, err := cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model:       model,
				Messages:    messages,
				Temperature: openai.Float(temperature),
			})
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				return "", models.ErrEmptyCompletion
			}
			return resp.Choices[0].Message.Content, nil
		},
	}, nil
}

// Complete runs the chat completion against each candidate model in
// order. The first successful completion wins.
func (c *Client) Complete(ctx context.Context, history []models.ChatMessage) (string, error) {
	messages := buildMessages(history)
	var lastErr error
	for _, model := range c.candidates {
		slog.Debug("GenAI attempting completion", "model", model, "messages", len(messages))
		text, err := c.complete(ctx, model, messages, c.temperature)
		if err == nil {
			slog.Debug("GenAI completion succeeded", "model", model, "response_length", len(text))
			return text, nil
		}
		lastErr = err
		if !isModelUnavailable(err) {
			slog.Error("GenAI terminal completion error", "error", err, "model", model)
			return "", fmt.Errorf("completion with %s failed: %w", model, err)
		}
		slog.Warn("GenAI model unavailable, trying next candidate", "model", model, "error", err)
	}
	slog.Error("GenAI exhausted all candidate models", "error", lastErr, "candidates", len(c.candidates))
	return "", fmt.Errorf("%w: %v", models.ErrModelsExhausted, lastErr)
}

// buildMessages converts the session's rolling history into the OpenAI
// wire form.
func buildMessages(history []models.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}

// isModelUnavailable classifies an adapter error as "try the next
// candidate model". Only the forbidden/not-found class qualifies;
// everything else is terminal.
func isModelUnavailable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 403 || apiErr.StatusCode == 404
	}
	return false
}
