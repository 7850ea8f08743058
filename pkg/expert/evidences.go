package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// SaveEvidencesName is the tool the research model uses to record the
// factual statements backing its report.
const SaveEvidencesName = "save_evidences"

// EvidenceRecorder is the per-run save_evidences tool. It accumulates
// statements across calls; the investigate loop reads them out as the
// slot's replacement evidences.
type EvidenceRecorder struct {
	mu         sync.Mutex
	statements []string
}

// NewEvidenceRecorder creates an empty recorder.
func NewEvidenceRecorder() *EvidenceRecorder {
	return &EvidenceRecorder{}
}

func (e *EvidenceRecorder) Name() string { return SaveEvidencesName }

func (e *EvidenceRecorder) Description() string {
	return "Record the factual statements (findings, measurements, literature facts) that support your report. Call this before writing the final report; each statement becomes citable evidence."
}

func (e *EvidenceRecorder) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"evidences": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Factual statements, one per entry.",
			},
		},
		"required": []string{"evidences"},
	}
}

func (e *EvidenceRecorder) Call(_ context.Context, args json.RawMessage) (*ToolResult, error) {
	var payload struct {
		Evidences []string `json:"evidences"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return &ToolResult{
			Content: fmt.Sprintf("invalid arguments: %v; expected {\"evidences\": [\"...\"]}", err),
			IsError: true,
		}, nil
	}

	var added int
	e.mu.Lock()
	for _, s := range payload.Evidences {
		if s = strings.TrimSpace(s); s != "" {
			e.statements = append(e.statements, s)
			added++
		}
	}
	total := len(e.statements)
	e.mu.Unlock()

	if added == 0 {
		return &ToolResult{Content: "no non-empty evidences provided", IsError: true}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("recorded %d evidences (%d total)", added, total)}, nil
}

// Evidences returns a copy of everything recorded so far.
func (e *EvidenceRecorder) Evidences() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.statements...)
}
