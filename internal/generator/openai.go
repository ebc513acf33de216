// Package generator asks a text-generation service for multiple-choice questions.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"quiz-room-service/internal/domain"
)

// Config selects the text-generation endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIGenerator implements app.Generator over an OpenAI-compatible chat API.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Generate requests count questions about topic and parses the reply.
// It makes exactly one call; retries are left to the caller.
func (g *OpenAIGenerator) Generate(ctx context.Context, topic string, count int) ([]domain.Question, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(topic, count)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion: no choices returned")
	}
	return ParseQuestions(resp.Choices[0].Message.Content)
}

func buildPrompt(topic string, count int) string {
	return fmt.Sprintf(`Generate %d multiple-choice quiz questions about %q. Format each question as:
{
  "question": "What year did WW2 begin?",
  "options": ["1939", "1941", "1914", "1945"],
  "correctAnswerIndex": 0,
  "difficulty": "Easy"
}
Return a JSON array of these questions.`, count, topic)
}
