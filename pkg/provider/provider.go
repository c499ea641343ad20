// Package provider contains the chat backend abstraction: a capability
// interface over "send a conversation, get one assistant reply", the
// bearer-token lifecycle behind it, and the concrete clients.
package provider

import (
	"context"
	"fmt"
)

// Role identifies the author of a chat turn on the wire.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in the wire format shared by chat backends.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request carries the full ordered conversation plus the generation cap for
// one completion call.
type Request struct {
	Messages  []Message
	MaxTokens int
}

// TokenUsage reports token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply is the single assistant message produced for a Request.
type Reply struct {
	Message Message
	Usage   *TokenUsage
}

// ChatClient is the capability a chat backend must provide. Implementations
// must not retry on their own and must not keep state about conversations;
// the caller owns the session.
type ChatClient interface {
	// Send issues one completion call and parses exactly one assistant
	// message from the response. Errors are *AuthError, *RateLimitError or
	// *ProviderError.
	Send(ctx context.Context, req Request) (*Reply, error)

	// Name returns the backend name.
	Name() string
}

// Settings selects and configures a chat backend.
type Settings struct {
	Backend  string // "gigachat" (default) or "openai"
	GigaChat GigaChatConfig
	OpenAI   OpenAIConfig
}

// New builds the configured backend. Adding a backend means adding an
// implementation and a case here, not modifying the existing clients.
func New(s Settings) (ChatClient, error) {
	switch s.Backend {
	case "", "gigachat":
		return NewGigaChatClient(s.GigaChat)
	case "openai":
		return NewOpenAIClient(s.OpenAI), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", s.Backend)
	}
}
