package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilium-ai/concilium/pkg/config"
	"github.com/concilium-ai/concilium/pkg/llm"
)

type fakeClient struct {
	response  string
	err       error
	lastInput llm.GenerateInput
}

func (f *fakeClient) Generate(_ context.Context, input llm.GenerateInput) (*llm.Response, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.response}, nil
}

func (f *fakeClient) Close() error { return nil }

func TestSummarize_NoReports(t *testing.T) {
	s := NewSummarizer(&fakeClient{}, "", 0)
	_, err := s.Summarize(context.Background(), Input{})

	var noReports *NoReportsError
	assert.ErrorAs(t, err, &noReports)
}

func TestSummarize_PromptAssembly(t *testing.T) {
	client := &fakeClient{response: "final"}
	s := NewSummarizer(client, "you are the panel chair", 0)

	_, err := s.Summarize(context.Background(), Input{
		Portrait: "## base_info\n- age: 34",
		PublishedReports: map[string]string{
			"group_2": "cardiac report <ref>1</ref>",
			"group_1": "metabolic report",
		},
		EvidencesByGroup: map[string][]string{
			"group_1": {"low enzyme activity"},
			"group_2": {"LVH on echo"},
		},
	})
	require.NoError(t, err)

	require.Len(t, client.lastInput.Messages, 2)
	assert.Equal(t, llm.RoleSystem, client.lastInput.Messages[0].Role)
	assert.Equal(t, "you are the panel chair", client.lastInput.Messages[0].Content)

	prompt := client.lastInput.Messages[1].Content
	assert.Contains(t, prompt, "Patient case portrait:")
	assert.Contains(t, prompt, "=== Report from group_1 ===")
	assert.Contains(t, prompt, "=== Report from group_2 ===")
	assert.Less(t, strings.Index(prompt, "group_1"), strings.Index(prompt, "=== Report from group_2 ==="),
		"reports concatenate in ascending group order")
	assert.Contains(t, prompt, "cardiac report <ref>group_2.1</ref>",
		"legacy numeric refs are qualified before the model sees them")
	assert.Contains(t, prompt, "[group_1.1] low enzyme activity", "evidence guide lists legal keys")
	assert.Contains(t, prompt, config.DefaultSummaryStyle, "default skeleton when no style given")
}

func TestSummarize_CustomStyle(t *testing.T) {
	client := &fakeClient{response: "final"}
	s := NewSummarizer(client, "", 0)

	_, err := s.Summarize(context.Background(), Input{
		PublishedReports: map[string]string{"group_1": "r"},
		EvidencesByGroup: map[string][]string{"group_1": {}},
		Style:            "one paragraph, plain language",
	})
	require.NoError(t, err)

	prompt := client.lastInput.Messages[0].Content
	assert.Contains(t, prompt, "one paragraph, plain language")
	assert.NotContains(t, prompt, config.DefaultSummaryStyle)
}

func TestSummarize_CitationAttribution(t *testing.T) {
	// group_1 has 2 evidences, group_2 has 3; a citation of group_2.3 must
	// resolve to group_2's third item, never a globally indexed one.
	client := &fakeClient{response: "Diagnosis rests on <ref>group_2.3</ref>."}
	s := NewSummarizer(client, "", 0)

	report, err := s.Summarize(context.Background(), Input{
		PublishedReports: map[string]string{"group_1": "r1", "group_2": "r2"},
		EvidencesByGroup: map[string][]string{
			"group_1": {"g1 first", "g1 second"},
			"group_2": {"g2 first", "g2 second", "g2 third"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, report, CitedEvidenceHeader)
	assert.Contains(t, report, "[group_2.3] g2 third")
	assert.NotContains(t, report, "[group_2.3] g1")
}

func TestSummarize_LLMFailure(t *testing.T) {
	boom := errors.New("rate limited")
	s := NewSummarizer(&fakeClient{err: boom}, "", 0)

	_, err := s.Summarize(context.Background(), Input{
		PublishedReports: map[string]string{"group_1": "r"},
	})
	assert.ErrorIs(t, err, boom)
}

func TestSummarize_Deterministic(t *testing.T) {
	client := &fakeClient{response: "stable <ref>group_1.1</ref>"}
	s := NewSummarizer(client, "", 0)
	in := Input{
		PublishedReports: map[string]string{"group_1": "r"},
		EvidencesByGroup: map[string][]string{"group_1": {"the evidence"}},
	}

	first, err := s.Summarize(context.Background(), in)
	require.NoError(t, err)
	second, err := s.Summarize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second, "fixed input and deterministic model reproduce byte-equal output")
}
