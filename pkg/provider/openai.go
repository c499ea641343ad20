package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig configures the OpenAI-compatible client. BaseURL allows
// pointing the client at any endpoint speaking the chat-completions API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient implements ChatClient for OpenAI-compatible backends.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name returns the backend name.
func (c *OpenAIClient) Name() string { return "openai" }

// Send issues one chat-completion call through the SDK and maps SDK errors
// onto the shared taxonomy.
func (c *OpenAIClient) Send(ctx context.Context, request Request) (*Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages))
	for _, msg := range request.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}

	response, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return nil, &ProviderError{Message: "empty completion"}
	}

	return &Reply{
		Message: Message{
			Role:    RoleAssistant,
			Content: response.Choices[0].Message.Content,
		},
		Usage: &TokenUsage{
			PromptTokens:     int(response.Usage.PromptTokens),
			CompletionTokens: int(response.Usage.CompletionTokens),
			TotalTokens:      int(response.Usage.TotalTokens),
		},
	}, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return &ProviderError{Message: "execute completion request", Err: err}
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Code: apiErr.StatusCode, Message: apiErr.Error()}
	case http.StatusTooManyRequests:
		return &RateLimitError{Status: apiErr.StatusCode, Message: "too many requests"}
	default:
		return &ProviderError{Status: apiErr.StatusCode, Message: apiErr.Error()}
	}
}
