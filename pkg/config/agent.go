package config

// Provider identifies a chat-completion backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Valid reports whether the provider is one of the supported backends.
func (p Provider) Valid() bool {
	return p == ProviderOpenAI || p == ProviderAnthropic
}

// AgentConfig defines one LLM-backed agent (triage, expert main/sub, summarizer).
type AgentConfig struct {
	// Provider type: "openai" or "anthropic" (required)
	Provider Provider `yaml:"provider"`

	// Model name (required)
	ModelName string `yaml:"model_name"`

	// Optional custom endpoint
	BaseURL string `yaml:"base_url,omitempty"`

	// API key, usually supplied via {{.VAR}} environment expansion
	APIKey string `yaml:"api_key,omitempty"`

	// Sampling temperature; nil means provider default
	Temperature *float64 `yaml:"temperature,omitempty"`

	// Path to the system prompt file, relative to the config directory
	SystemPromptPath string `yaml:"system_prompt_path,omitempty"`

	// Extra provider-specific generation parameters (e.g. max_tokens)
	ModelKwargs map[string]any `yaml:"model_kwargs,omitempty"`

	// Tool inventory adjustments for expert agents
	AdditionalTools []string `yaml:"additional_tools,omitempty"`
	ExcludeTools    []string `yaml:"exclude_tools,omitempty"`

	// ExcludeToolsLegacy accepts the historical "excoulde_tools" key (sic)
	// that older config files carry. The loader folds it into ExcludeTools;
	// everything downstream reads ExcludeTools only.
	ExcludeToolsLegacy []string `yaml:"excoulde_tools,omitempty"`

	// SystemPrompt is the loaded content of SystemPromptPath.
	// Populated by the loader, never set in YAML.
	SystemPrompt string `yaml:"-"`
}

// MaxTokens returns the model_kwargs max_tokens value, or 0 when unset.
// YAML numbers unmarshal into any as int or float64 depending on notation.
func (a *AgentConfig) MaxTokens() int {
	if a == nil || a.ModelKwargs == nil {
		return 0
	}
	switch v := a.ModelKwargs["max_tokens"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// ExpertGroupConfig pairs an expert's research agent with its optional
// review agent. When SubAgent is nil the main agent also handles the
// cross-review.
type ExpertGroupConfig struct {
	MainAgent *AgentConfig `yaml:"main_agent"`
	SubAgent  *AgentConfig `yaml:"sub_agent,omitempty"`
}
