package config

import (
	"errors"
	"fmt"
)

// Validator performs cross-field validation on loaded configuration.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates every section and returns the combined errors.
func (v *Validator) ValidateAll() error {
	var errs []error

	if len(v.cfg.ExpertGroups) == 0 {
		errs = append(errs, NewValidationError("multi_expert_diagnosis_agent", "", "",
			fmt.Errorf("%w: at least one expert group", ErrMissingRequiredField)))
	}

	for _, id := range v.cfg.ExpertGroupIDs() {
		group := v.cfg.ExpertGroups[id]
		if group.MainAgent == nil {
			errs = append(errs, NewValidationError("expert_group", id, "main_agent", ErrMissingRequiredField))
			continue
		}
		errs = append(errs, v.validateAgent("expert_group", id+".main_agent", group.MainAgent)...)
		if group.SubAgent != nil {
			errs = append(errs, v.validateAgent("expert_group", id+".sub_agent", group.SubAgent)...)
		}
	}

	if v.cfg.SummaryAgent == nil {
		errs = append(errs, NewValidationError("summary_agent", "", "",
			ErrMissingRequiredField))
	} else {
		errs = append(errs, v.validateAgent("agent", "summary_agent", v.cfg.SummaryAgent)...)
	}

	// pre_diagnosis_agent is optional: without it PrepareSummary always
	// uses the deterministic fallback.
	if v.cfg.PreDiagnosisAgent != nil {
		errs = append(errs, v.validateAgent("agent", "pre_diagnosis_agent", v.cfg.PreDiagnosisAgent)...)
	}

	if v.cfg.MDT.MaxRounds < 1 {
		errs = append(errs, NewValidationError("mdt_config", "", "max_rounds",
			fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, v.cfg.MDT.MaxRounds)))
	}
	if v.cfg.MDT.PerCallTimeout <= 0 {
		errs = append(errs, NewValidationError("mdt_config", "", "per_call_timeout",
			fmt.Errorf("%w: must be positive", ErrInvalidValue)))
	}

	return errors.Join(errs...)
}

func (v *Validator) validateAgent(component, id string, a *AgentConfig) []error {
	var errs []error
	if !a.Provider.Valid() {
		errs = append(errs, NewValidationError(component, id, "provider",
			fmt.Errorf("%w: %q", ErrUnknownProvider, a.Provider)))
	}
	if a.ModelName == "" {
		errs = append(errs, NewValidationError(component, id, "model_name", ErrMissingRequiredField))
	}
	if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
		errs = append(errs, NewValidationError(component, id, "temperature",
			fmt.Errorf("%w: must be within [0, 2]", ErrInvalidValue)))
	}
	return errs
}
