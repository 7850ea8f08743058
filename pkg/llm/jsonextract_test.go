package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "clean object",
			input: `{"is_satisfied": true, "reinvestigate_reason": ""}`,
			want:  `{"is_satisfied": true, "reinvestigate_reason": ""}`,
		},
		{
			name:  "surrounding whitespace",
			input: "\n  {\"a\": 1}\n",
			want:  `{"a": 1}`,
		},
		{
			name:  "json fenced block",
			input: "Here is the verdict:\n```json\n{\"is_satisfied\": false}\n```\nDone.",
			want:  `{"is_satisfied": false}`,
		},
		{
			name:  "bare fenced block with prose",
			input: "Sure! Here you go: ```{\"is_satisfied\": true}```",
			want:  `{"is_satisfied": true}`,
		},
		{
			name:  "prose wrapped object",
			input: `I believe the answer is {"is_satisfied": true, "reinvestigate_reason": ""} as discussed.`,
			want:  `{"is_satisfied": true, "reinvestigate_reason": ""}`,
		},
		{
			name:  "nested braces via greedy span",
			input: `prefix {"outer": {"inner": 1}} suffix`,
			want:  `{"outer": {"inner": 1}}`,
		},
		{
			name:    "no object at all",
			input:   "I am satisfied with the reports.",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"is_satisfied": true`,
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoJSONObject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
