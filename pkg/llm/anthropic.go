package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/concilium-ai/concilium/pkg/config"
)

// anthropicDefaultMaxTokens applies when neither the request nor the agent
// config caps the response; the Messages API requires an explicit value.
const anthropicDefaultMaxTokens = 4096

// jsonModeInstruction approximates JSON mode for the anthropic API, which
// has no native response-format switch.
const jsonModeInstruction = "Respond with a single valid JSON object and no other text."

type anthropicClient struct {
	client anthropic.Client
	cfg    *config.AgentConfig
}

func newAnthropicClient(cfg *config.AgentConfig) (*anthropicClient, error) {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicClient{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (c *anthropicClient) Generate(ctx context.Context, input GenerateInput) (*Response, error) {
	system, turns := splitSystem(input.Messages)
	if input.JSONMode {
		if system != "" {
			system += "\n\n"
		}
		system += jsonModeInstruction
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.ModelName),
		MaxTokens: int64(c.maxTokens(input.MaxTokens)),
		Messages:  turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if temp := resolveTemperature(input.Temperature, c.cfg.Temperature); temp != nil {
		params.Temperature = anthropic.Float(*temp)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic generate failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, ErrEmptyResponse
	}
	return &Response{Content: sb.String()}, nil
}

func (c *anthropicClient) Close() error { return nil }

func (c *anthropicClient) maxTokens(request int) int {
	if max := resolveMaxTokens(request, c.cfg.MaxTokens()); max > 0 {
		return max
	}
	return anthropicDefaultMaxTokens
}

// splitSystem separates system messages (the Messages API takes them as a
// top-level parameter) from conversation turns. Tool observations become
// user turns since the engine carries tool output as plain text.
func splitSystem(messages []Message) (string, []anthropic.MessageParam) {
	var system []string
	turns := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return strings.Join(system, "\n\n"), turns
}
