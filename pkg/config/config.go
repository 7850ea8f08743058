// Package config loads and validates the static configuration document
// driving the deliberation engine: per-agent LLM settings, expert group
// definitions, round budgets, and prompt templates.
//
// Configuration is loaded once at startup and treated as immutable
// afterwards; the *Config value is passed down explicitly, never held in
// a package-level variable.
package config

import (
	"fmt"
	"sort"
)

// Config is the fully loaded, validated configuration.
type Config struct {
	configDir string

	// PreDiagnosisAgent is the triage/dialogue-summary LLM.
	PreDiagnosisAgent *AgentConfig

	// ExpertGroups maps group_id → expert group definition.
	ExpertGroups map[string]*ExpertGroupConfig

	// SummaryAgent composes the final report.
	SummaryAgent *AgentConfig

	// MDT holds round budget and reviewer template settings.
	MDT *MDTConfig

	// MaxInputTokens is the per-agent context window budget.
	MaxInputTokens int

	// ReviewerPrompt is the loaded reviewer instruction template
	// (content of MDT.ReviewerPromptPath, or the built-in default).
	ReviewerPrompt string
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ExpertGroupIDs returns all configured group IDs in ascending order.
// The deliberation loop depends on this ordering for deterministic
// enumeration (citation namespace, report concatenation).
func (c *Config) ExpertGroupIDs() []string {
	ids := make([]string, 0, len(c.ExpertGroups))
	for id := range c.ExpertGroups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExpertGroup retrieves one expert group definition by ID.
func (c *Config) ExpertGroup(id string) (*ExpertGroupConfig, error) {
	group, ok := c.ExpertGroups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExpertGroupNotFound, id)
	}
	return group, nil
}

// Stats summarizes loaded configuration for startup logging.
type Stats struct {
	ExpertGroups int
	MaxRounds    int
}

// Stats returns summary counts for logging.
func (c *Config) Stats() Stats {
	return Stats{
		ExpertGroups: len(c.ExpertGroups),
		MaxRounds:    c.MDT.MaxRounds,
	}
}
