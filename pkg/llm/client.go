// Package llm provides the chat-completion client abstraction used by every
// agent in the engine, with concrete clients for the openai and anthropic
// providers.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/concilium-ai/concilium/pkg/config"
)

// Message roles. The tool role carries tool observations back to the model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateInput is a single completion request.
type GenerateInput struct {
	Messages []Message

	// JSONMode asks the provider for a JSON-object response. Providers
	// honour this inconsistently; callers must still parse leniently.
	JSONMode bool

	// Temperature overrides the client's configured temperature when set.
	Temperature *float64

	// MaxTokens caps the response length; 0 means provider default.
	MaxTokens int
}

// Response is the completed model output.
type Response struct {
	Content string
}

// Client is the provider-agnostic chat-completion interface.
// Implementations must be safe for concurrent use: the fan-out scheduler
// calls Generate from multiple goroutines.
type Client interface {
	Generate(ctx context.Context, input GenerateInput) (*Response, error)
	Close() error
}

// ErrEmptyResponse indicates the provider returned no usable content.
var ErrEmptyResponse = errors.New("llm returned empty response")

// NewClient builds a provider client from agent configuration.
func NewClient(cfg *config.AgentConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newOpenAIClient(cfg)
	case config.ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}
