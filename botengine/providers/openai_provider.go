package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/AzielCF/az-relay/botengine/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider is the adapter for the OpenAI API
type OpenAIProvider struct {
	apiKey string
	model  string
	opts   []option.RequestOption
}

func NewOpenAIProvider(apiKey, model string, opts ...option.RequestOption) *OpenAIProvider {
	if model == "" {
		model = domain.DefaultOpenAIModel
	}
	return &OpenAIProvider{apiKey: apiKey, model: model, opts: opts}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req domain.ChatRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("openai: no API key configured")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(p.apiKey)}, p.opts...)...)

	model := req.Model
	if model == "" {
		model = p.model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, t := range req.History {
		if t.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	if req.UserText != "" {
		messages = append(messages, openai.UserMessage(req.UserText))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", domain.ErrEmptyResponse
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", domain.ErrEmptyResponse
	}

	logrus.WithFields(logrus.Fields{
		"model":         model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	}).Debug("[OPENAI] Reply generated")
	return text, nil
}
