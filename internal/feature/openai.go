package feature

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI-backed sentiment scorer.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API endpoint for compatible servers.
	BaseURL string

	// Model is the chat model to use. Defaults to gpt-4o-mini.
	Model string

	// Timeout bounds each scoring call. Defaults to 30s.
	Timeout time.Duration
}

// OpenAIScorer scores sentiment with a chat model. Each call asks the
// model for a single number in [-1, 1]; anything unparseable is an error,
// which the extractor records as an incomplete vector.
type OpenAIScorer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

const sentimentSystemPrompt = "You rate the sentiment of verse text. " +
	"Reply with a single decimal number between -1 (most negative) and 1 (most positive). " +
	"No words, no explanation."

// NewOpenAIScorer creates an OpenAI-backed scorer.
func NewOpenAIScorer(config OpenAIConfig) (*OpenAIScorer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIScorer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// Name returns the scorer name.
func (s *OpenAIScorer) Name() string { return "openai" }

// Score implements Scorer.
func (s *OpenAIScorer) Score(ctx context.Context, text string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		return 0, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from OpenAI")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable sentiment %q: %w", raw, err)
	}
	return clamp(score), nil
}
