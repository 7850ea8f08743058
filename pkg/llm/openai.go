package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/concilium-ai/concilium/pkg/config"
)

// openaiClient wraps langchaingo's openai model behind the Client interface.
// It also serves openai-compatible endpoints via base_url.
type openaiClient struct {
	model *openai.LLM
	cfg   *config.AgentConfig
}

func newOpenAIClient(cfg *config.AgentConfig) (*openaiClient, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.ModelName),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client for %s: %w", cfg.ModelName, err)
	}
	return &openaiClient{model: model, cfg: cfg}, nil
}

func (c *openaiClient) Generate(ctx context.Context, input GenerateInput) (*Response, error) {
	content := make([]llms.MessageContent, 0, len(input.Messages))
	for _, m := range input.Messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	var callOpts []llms.CallOption
	if temp := resolveTemperature(input.Temperature, c.cfg.Temperature); temp != nil {
		callOpts = append(callOpts, llms.WithTemperature(*temp))
	}
	if max := resolveMaxTokens(input.MaxTokens, c.cfg.MaxTokens()); max > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(max))
	}
	if input.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai generate failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Content: resp.Choices[0].Content}, nil
}

func (c *openaiClient) Close() error { return nil }

func chatMessageType(role string) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	case RoleTool:
		// langchaingo v0.1.7 predates schema.ChatMessageTypeTool; "tool" is
		// the value later versions assign to that constant.
		return schema.ChatMessageType("tool")
	default:
		return schema.ChatMessageTypeHuman
	}
}

func resolveTemperature(request, configured *float64) *float64 {
	if request != nil {
		return request
	}
	return configured
}

func resolveMaxTokens(request, configured int) int {
	if request > 0 {
		return request
	}
	return configured
}
