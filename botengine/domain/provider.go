package domain

import (
	"context"
	"errors"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultClaudeModel = "claude-3-5-haiku-latest"
)

// ErrEmptyResponse is returned when a provider answered without any text.
var ErrEmptyResponse = errors.New("provider returned no text")

// ChatTurn es un turno previo de la conversación
type ChatTurn struct {
	Role string // "user" or "assistant"
	Text string
}

// ChatRequest is provider agnostic.
type ChatRequest struct {
	SystemPrompt string
	History      []ChatTurn
	UserText     string
	Model        string
	MaxTokens    int64
}

// Generator is implemented by every AI provider adapter.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req ChatRequest) (string, error)
}
