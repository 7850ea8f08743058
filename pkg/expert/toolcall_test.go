package expert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCall  bool
		wantBlock bool
		wantErr   bool
		toolName  string
	}{
		{
			name:     "no block means final report",
			text:     "The findings point to Fabry disease.",
			wantCall: false,
		},
		{
			name:      "well-formed block",
			text:      "Let me record the findings.\n```tool\n{\"name\": \"save_evidences\", \"arguments\": {\"evidences\": [\"x\"]}}\n```",
			wantCall:  true,
			wantBlock: true,
			toolName:  "save_evidences",
		},
		{
			name:      "block without arguments",
			text:      "```tool\n{\"name\": \"list_sections\"}\n```",
			wantCall:  true,
			wantBlock: true,
			toolName:  "list_sections",
		},
		{
			name:      "surrounding prose tolerated",
			text:      "I will now call a tool. ```tool {\"name\": \"t\", \"arguments\": {}} ``` Then I'll wait.",
			wantCall:  true,
			wantBlock: true,
			toolName:  "t",
		},
		{
			name:      "unterminated block treated as report",
			text:      "```tool\n{\"name\": broken\n```",
			wantBlock: false,
		},
		{
			name:      "invalid json in block",
			text:      "```tool\n{\"name\": }\n```",
			wantBlock: true,
			wantErr:   true,
		},
		{
			name:      "missing name",
			text:      "```tool\n{\"arguments\": {}}\n```",
			wantBlock: true,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, hasBlock, err := ParseToolCall(tt.text)
			assert.Equal(t, tt.wantBlock, hasBlock)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if !tt.wantCall {
				assert.Nil(t, call)
				return
			}
			require.NotNil(t, call)
			assert.Equal(t, tt.toolName, call.Name)
			assert.NotEmpty(t, call.Arguments, "arguments default to an empty object")
		})
	}
}
