package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/concilium-ai/concilium/pkg/patient"
)

// Patient-record tool names, used by the triage front-end surface.
const (
	UpsertFactsName = "upsert_patient_facts"
	DeleteFactsName = "delete_patient_facts"
)

type upsertFactsTool struct {
	record *patient.Record
}

// NewUpsertFactsTool creates a tool that merges facts into a record section.
func NewUpsertFactsTool(record *patient.Record) Tool {
	return &upsertFactsTool{record: record}
}

func (t *upsertFactsTool) Name() string { return UpsertFactsName }

func (t *upsertFactsTool) Description() string {
	return "Add or update facts in a patient-record section. A fact carrying a known id merges into the existing entry; anything else is appended as a new entry."
}

func (t *upsertFactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"section": map[string]any{
				"type":        "string",
				"description": "Section name, e.g. symptoms, vitals, exams.",
			},
			"facts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "object"},
				"description": "Facts to merge, free-form key/value objects.",
			},
		},
		"required": []string{"section", "facts"},
	}
}

func (t *upsertFactsTool) Call(_ context.Context, args json.RawMessage) (*ToolResult, error) {
	var payload struct {
		Section string         `json:"section"`
		Facts   []patient.Fact `json:"facts"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return &ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if len(payload.Facts) == 0 {
		return &ToolResult{Content: "no facts provided", IsError: true}, nil
	}

	if err := t.record.UpsertFacts(payload.Section, payload.Facts); err != nil {
		return &ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &ToolResult{
		Content: fmt.Sprintf("upserted %d facts into %s", len(payload.Facts), payload.Section),
	}, nil
}

type deleteFactsTool struct {
	record *patient.Record
}

// NewDeleteFactsTool creates a tool that removes facts from a record section
// by id.
func NewDeleteFactsTool(record *patient.Record) Tool {
	return &deleteFactsTool{record: record}
}

func (t *deleteFactsTool) Name() string { return DeleteFactsName }

func (t *deleteFactsTool) Description() string {
	return "Delete facts from a patient-record section by their ids. Unknown ids are ignored."
}

func (t *deleteFactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"section": map[string]any{"type": "string"},
			"ids": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"section", "ids"},
	}
}

func (t *deleteFactsTool) Call(_ context.Context, args json.RawMessage) (*ToolResult, error) {
	var payload struct {
		Section string   `json:"section"`
		IDs     []string `json:"ids"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return &ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if len(payload.IDs) == 0 {
		return &ToolResult{Content: "no ids provided", IsError: true}, nil
	}

	if err := t.record.DeleteFacts(payload.Section, payload.IDs); err != nil {
		return &ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &ToolResult{
		Content: fmt.Sprintf("deleted facts [%s] from %s", strings.Join(payload.IDs, ", "), payload.Section),
	}, nil
}
