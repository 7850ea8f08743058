// Package expert implements the inner deep-research agent behind one expert
// group: a registry of callable tools, the fenced tool-call protocol, and the
// bounded investigate loop that turns a seeded conversation into a report
// plus recorded evidences.
package expert

import (
	"context"
	"encoding/json"
)

// ToolResult is the outcome of one tool call. A recoverable problem comes
// back as IsError=true with a message the model can act on; a Go error from
// Call means infrastructure failure.
type ToolResult struct {
	Content string
	IsError bool
}

// Tool is one callable capability exposed to the research model.
type Tool interface {
	Name() string
	Description() string

	// Parameters returns the JSON schema of the arguments object.
	Parameters() map[string]any

	Call(ctx context.Context, args json.RawMessage) (*ToolResult, error)
}
