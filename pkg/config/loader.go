package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// conciliumYAMLConfig represents the complete concilium.yaml file structure.
type conciliumYAMLConfig struct {
	PreDiagnosisAgent *AgentConfig                  `yaml:"pre_diagnosis_agent"`
	ExpertGroups      map[string]*ExpertGroupConfig `yaml:"multi_expert_diagnosis_agent"`
	SummaryAgent      *AgentConfig                  `yaml:"summary_agent"`
	MDT               *MDTConfig                    `yaml:"mdt_config"`
	MaxInputTokens    int                           `yaml:"max_input_tokens"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load concilium.yaml from configDir
//  2. Expand environment variables ({{.VAR}} template syntax)
//  3. Parse YAML into structs
//  4. Merge built-in defaults for unset values
//  5. Load referenced prompt files
//  6. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"expert_groups", stats.ExpertGroups,
		"max_rounds", stats.MaxRounds)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	var raw conciliumYAMLConfig
	if err := loader.loadYAML("concilium.yaml", &raw); err != nil {
		return nil, NewLoadError("concilium.yaml", err)
	}

	// Resolve MDT config (merge user YAML with built-in defaults)
	mdt := DefaultMDTConfig()
	if raw.MDT != nil {
		if err := mergo.Merge(mdt, raw.MDT, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge mdt config: %w", err)
		}
	}

	cfg := &Config{
		configDir:         configDir,
		PreDiagnosisAgent: raw.PreDiagnosisAgent,
		ExpertGroups:      raw.ExpertGroups,
		SummaryAgent:      raw.SummaryAgent,
		MDT:               mdt,
		MaxInputTokens:    raw.MaxInputTokens,
	}
	if cfg.ExpertGroups == nil {
		cfg.ExpertGroups = map[string]*ExpertGroupConfig{}
	}

	loader.normalizeAgents(cfg)

	if err := loader.loadPrompts(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax.
	// Note: ExpandEnv passes through original data on parse/execution errors,
	// allowing the YAML parser to handle the content (or fail with a clearer
	// error message).
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

// loadPrompts resolves every *_prompt_path into loaded content.
// A configured path that cannot be read is fatal.
func (l *configLoader) loadPrompts(cfg *Config) error {
	agents := l.allAgents(cfg)
	for _, a := range agents {
		if a == nil || a.SystemPromptPath == "" {
			continue
		}
		content, err := l.readPrompt(a.SystemPromptPath)
		if err != nil {
			return err
		}
		a.SystemPrompt = content
	}

	if cfg.MDT.ReviewerPromptPath != "" {
		content, err := l.readPrompt(cfg.MDT.ReviewerPromptPath)
		if err != nil {
			return err
		}
		cfg.ReviewerPrompt = content
	} else {
		cfg.ReviewerPrompt = DefaultReviewerPrompt
	}
	return nil
}

// normalizeAgents folds legacy YAML keys into their current fields, so the
// rest of the codebase only ever sees the current schema.
func (l *configLoader) normalizeAgents(cfg *Config) {
	for _, a := range l.allAgents(cfg) {
		if a == nil || len(a.ExcludeToolsLegacy) == 0 {
			continue
		}
		a.ExcludeTools = append(a.ExcludeTools, a.ExcludeToolsLegacy...)
		a.ExcludeToolsLegacy = nil
	}
}

func (l *configLoader) allAgents(cfg *Config) []*AgentConfig {
	agents := []*AgentConfig{cfg.PreDiagnosisAgent, cfg.SummaryAgent}
	for _, id := range cfg.ExpertGroupIDs() {
		group := cfg.ExpertGroups[id]
		agents = append(agents, group.MainAgent, group.SubAgent)
	}
	return agents
}

func (l *configLoader) readPrompt(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.configDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", NewLoadError(path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
