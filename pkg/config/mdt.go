package config

import "time"

// MDTConfig controls the multi-expert deliberation loop.
type MDTConfig struct {
	// MaxRounds is the round budget: one round = one fan-out + one review pass.
	// The loop terminates when round_count reaches this bound even without
	// consensus.
	MaxRounds int `yaml:"max_rounds"`

	// ReviewerPromptPath points at the reviewer instruction template,
	// relative to the config directory. The template's {round_count}
	// token is replaced with the round number; everything else, literal
	// % signs included, passes through untouched.
	ReviewerPromptPath string `yaml:"reviewer_prompt_path"`

	// PerCallTimeout bounds every individual LLM call made by the
	// deliberation loop. Exceeding it counts as an expert error.
	PerCallTimeout time.Duration `yaml:"per_call_timeout"`
}

// DefaultMDTConfig returns the built-in deliberation defaults.
func DefaultMDTConfig() *MDTConfig {
	return &MDTConfig{
		MaxRounds:      3,
		PerCallTimeout: 5 * time.Minute,
	}
}
