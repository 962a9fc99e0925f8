package llm

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// GeneratorConfig configures the generative backend. The default base URL
// targets Groq's OpenAI-compatible API; any compatible endpoint works.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	RateLimit   float64 // requests per second
}

// Generator calls the generative backend with a client-side rate limit. The
// backend is rate-limited upstream too; the limiter keeps a full-exam
// fan-out from tripping it.
type Generator struct {
	config  GeneratorConfig
	client  *openai.Client
	limiter *rate.Limiter
}

func NewGeneratorWithConfig(config GeneratorConfig) (*Generator, error) {
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("generator API key not set (GROQ_API_KEY)")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.Model == "" {
		config.Model = "llama-3.1-8b-instant"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.RateLimit == 0 {
		config.RateLimit = 0.5
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL

	return &Generator{
		config:  config,
		client:  openai.NewClientWithConfig(clientConfig),
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Complete sends one prompt and returns the raw completion text. The
// response is requested as a JSON object but arrives unvalidated; the
// orchestrator owns parsing and retry.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(g.config.Temperature),
		MaxTokens:   g.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return resp.Choices[0].Message.Content, nil
}
