package expert

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ToolCall is one parsed tool invocation from a model response.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// toolBlockRe matches a fenced tool block:
//
//	```tool
//	{"name": "...", "arguments": {...}}
//	```
var toolBlockRe = regexp.MustCompile("(?s)```tool\\s*(\\{.*?\\})\\s*```")

// ParseToolCall extracts the first fenced tool block from a model response.
// No block means the model is done and the text is its report. A block that
// is present but unusable is a format error the caller feeds back to the
// model.
func ParseToolCall(text string) (*ToolCall, bool, error) {
	m := toolBlockRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false, nil
	}

	var call ToolCall
	if err := json.Unmarshal([]byte(m[1]), &call); err != nil {
		return nil, true, fmt.Errorf("malformed tool block: %w", err)
	}
	call.Name = strings.TrimSpace(call.Name)
	if call.Name == "" {
		return nil, true, fmt.Errorf("tool block missing \"name\"")
	}
	if len(call.Arguments) == 0 {
		call.Arguments = json.RawMessage("{}")
	}
	return &call, true, nil
}
