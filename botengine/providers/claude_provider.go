package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/AzielCF/az-relay/botengine/domain"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// ClaudeProvider is the adapter for the Anthropic Messages API
type ClaudeProvider struct {
	apiKey string
	model  string
	opts   []option.RequestOption
}

func NewClaudeProvider(apiKey, model string, opts ...option.RequestOption) *ClaudeProvider {
	if model == "" {
		model = domain.DefaultClaudeModel
	}
	return &ClaudeProvider{apiKey: apiKey, model: model, opts: opts}
}

func (p *ClaudeProvider) Name() string { return "claude" }

func (p *ClaudeProvider) Generate(ctx context.Context, req domain.ChatRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("claude: no API key configured")
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(p.apiKey)}, p.opts...)...)

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	var messages []anthropic.MessageParam
	for _, t := range req.History {
		if t.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	if req.UserText != "" {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserText)))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.ErrEmptyResponse
	}

	logrus.WithFields(logrus.Fields{
		"model":         model,
		"stop_reason":   resp.StopReason,
		"output_tokens": resp.Usage.OutputTokens,
	}).Debug("[CLAUDE] Reply generated")
	return text, nil
}
