package deliberation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilium-ai/concilium/pkg/config"
	"github.com/concilium-ai/concilium/pkg/llm"
	"github.com/concilium-ai/concilium/pkg/summary"
)

// newTestPipeline wires a pipeline from scripted collaborators. Group ids are
// taken from the invoker map; every group needs a verdict client.
func newTestPipeline(
	maxRounds int,
	invokers map[string]ExpertInvoker,
	verdicts map[string]llm.Client,
	summaryClient llm.Client,
	preDiagnosis llm.Client,
) *Pipeline {
	ids := make([]string, 0, len(invokers))
	for id := range invokers {
		ids = append(ids, id)
	}
	cfg := testConfig(maxRounds, ids...)

	targets := map[string]ReviewTarget{}
	for id, client := range verdicts {
		targets[id] = ReviewTarget{Client: client}
	}
	summarizer := summary.NewSummarizer(summaryClient, "", 0)
	return NewPipeline(cfg, invokers, targets, summarizer, preDiagnosis)
}

func diagnosisState() MainState {
	return MainState{
		MDTState:       MDTState{Patient: testRecord()},
		StartDiagnosis: true,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "I have burning pain in my hands"},
			{Role: llm.RoleAssistant, Content: "How long has this been going on?"},
		},
	}
}

func messageContents(messages []llm.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}

func TestPipeline_GatePassThrough(t *testing.T) {
	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": reportingInvoker("r1")},
		map[string]llm.Client{"group_1": &scriptedClient{responses: []string{satisfiedVerdict}}},
		&scriptedClient{responses: []string{"report"}}, nil)

	in := diagnosisState()
	in.StartDiagnosis = false

	out, err := p.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, out.SessionID)
	assert.Empty(t, out.FinalReport)
	assert.Equal(t, in.Messages, out.Messages, "dialogue passes through untouched")
}

func TestPipeline_ImmediateConsensus(t *testing.T) {
	g1 := reportingInvoker("metabolic workup report", "low alpha-gal activity")
	g2 := reportingInvoker("cardiac workup report", "LVH on echo")
	summaryClient := &scriptedClient{responses: []string{
		"Diagnosis: Fabry disease <ref>group_1.1</ref>",
	}}

	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": g1, "group_2": g2},
		map[string]llm.Client{
			"group_1": &scriptedClient{responses: []string{satisfiedVerdict}},
			"group_2": &scriptedClient{responses: []string{satisfiedVerdict}},
		},
		summaryClient, nil)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.NoError(t, err)

	assert.NotEmpty(t, out.SessionID)
	assert.True(t, out.ConsensusReached)
	assert.Equal(t, 2, out.RoundCount)
	assert.Equal(t, 1, g1.callCount())
	assert.Equal(t, 1, g2.callCount())

	require.Contains(t, out.FinalReport, "Diagnosis: Fabry disease")
	assert.Contains(t, out.FinalReport, summary.CitedEvidenceHeader)
	assert.Contains(t, out.FinalReport, "[group_1.1] low alpha-gal activity")

	contents := messageContents(out.Messages)
	assert.Contains(t, contents, "triggered deep diagnosis")
	assert.Contains(t, contents, "round 1 review done (satisfied 2/2) — consensus reached")
	assert.Contains(t, contents, "final report composed from 2 expert reports")
}

func TestPipeline_DisagreementResolvedInSecondRound(t *testing.T) {
	g1 := reportingInvoker("g1 report")
	g2 := &stubInvoker{fn: func(_ InvestigateRequest, call int) (*InvestigateResult, error) {
		if call == 0 {
			return &InvestigateResult{FinalMessage: "initial assessment"}, nil
		}
		return &InvestigateResult{FinalMessage: "revised assessment"}, nil
	}}
	summaryClient := &scriptedClient{responses: []string{"final report"}}

	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": g1, "group_2": g2},
		map[string]llm.Client{
			"group_1": &scriptedClient{responses: []string{satisfiedVerdict}},
			"group_2": &scriptedClient{responses: []string{
				`{"is_satisfied": false, "reinvestigate_reason": "needs cardiac workup"}`,
				satisfiedVerdict,
			}},
		},
		summaryClient, nil)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.NoError(t, err)

	assert.True(t, out.ConsensusReached)
	assert.Equal(t, 3, out.RoundCount)
	assert.Equal(t, 1, g1.callCount(), "satisfied expert is not re-dispatched")
	assert.Equal(t, 2, g2.callCount())

	assert.Equal(t, "revised assessment", out.ExpertPool["group_2"].Report)
	assert.Equal(t, "initial assessment", out.Blackboard.PublishedReports["group_2"],
		"blackboard keeps the first published text")

	require.Len(t, summaryClient.inputs, 1)
	prompt := summaryClient.inputs[0].Messages[len(summaryClient.inputs[0].Messages)-1].Content
	assert.Contains(t, prompt, "initial assessment")
	assert.NotContains(t, prompt, "revised assessment")

	assert.Contains(t, messageContents(out.Messages), "round 2 starting")
}

func TestPipeline_RoundBudgetExhausted(t *testing.T) {
	g1 := reportingInvoker("g1 report")
	g2 := reportingInvoker("g2 report")
	unsatisfied := `{"is_satisfied": false, "reinvestigate_reason": "still diverging"}`

	p := newTestPipeline(2,
		map[string]ExpertInvoker{"group_1": g1, "group_2": g2},
		map[string]llm.Client{
			"group_1": &scriptedClient{responses: []string{unsatisfied}},
			"group_2": &scriptedClient{responses: []string{unsatisfied}},
		},
		&scriptedClient{responses: []string{"best-effort report"}}, nil)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.NoError(t, err)

	assert.False(t, out.ConsensusReached)
	assert.Equal(t, 2, out.RoundCount)
	assert.Equal(t, 1, g1.callCount())
	assert.Equal(t, 1, g2.callCount())
	assert.Contains(t, out.FinalReport, "best-effort report",
		"exhaustion still produces a final report")

	contents := messageContents(out.Messages)
	assert.Contains(t, contents, "round 1 review done (satisfied 0/2) — round budget exhausted")
	assert.NotContains(t, contents, "round 2 starting")
}

func TestPipeline_PartialExpertFailure(t *testing.T) {
	g1 := reportingInvoker("g1 report", "evidence one")
	g2 := failingInvoker(errors.New("model unavailable"))
	summaryClient := &scriptedClient{responses: []string{"report from survivors"}}

	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": g1, "group_2": g2},
		map[string]llm.Client{
			"group_1": &scriptedClient{responses: []string{satisfiedVerdict}},
			"group_2": &scriptedClient{responses: []string{satisfiedVerdict}},
		},
		summaryClient, nil)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.NoError(t, err)

	assert.True(t, out.ExpertPool["group_2"].HasError)
	require.Len(t, out.Blackboard.PublishedReports, 1)
	assert.Contains(t, out.Blackboard.PublishedReports, "group_1")
	assert.Contains(t, out.FinalReport, "report from survivors")

	prompt := summaryClient.inputs[0].Messages[len(summaryClient.inputs[0].Messages)-1].Content
	assert.NotContains(t, prompt, "group_2", "failed expert contributes nothing to the summary")

	contents := messageContents(out.Messages)
	assert.Contains(t, contents, "expert group group_2 failed: model unavailable")
}

func TestPipeline_AllExpertsFailed(t *testing.T) {
	p := newTestPipeline(3,
		map[string]ExpertInvoker{
			"group_1": failingInvoker(errors.New("boom")),
			"group_2": failingInvoker(errors.New("boom")),
		},
		nil,
		&scriptedClient{responses: []string{"never used"}}, nil)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.Error(t, err)

	var noReports *summary.NoReportsError
	assert.ErrorAs(t, err, &noReports)
	assert.Empty(t, out.FinalReport)
	assert.NotEmpty(t, out.Messages, "progress messages survive the failure")
}

func TestPipeline_Cancellation(t *testing.T) {
	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": reportingInvoker("r1")},
		map[string]llm.Client{"group_1": &scriptedClient{responses: []string{satisfiedVerdict}}},
		&scriptedClient{responses: []string{"report"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Invoke(ctx, diagnosisState())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_PrepareSummary_KeepsExisting(t *testing.T) {
	preDiag := &scriptedClient{responses: []string{"should not be called"}}
	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": reportingInvoker("r1")},
		map[string]llm.Client{"group_1": &scriptedClient{responses: []string{satisfiedVerdict}}},
		&scriptedClient{responses: []string{"report"}}, preDiag)

	in := diagnosisState()
	in.SummaryWithDialogue = "prior case brief"

	out, err := p.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.Zero(t, preDiag.calls)
	seed := out.ExpertPool["group_1"].Messages[0]
	assert.Contains(t, seed.Content, "prior case brief")
}

func TestPipeline_PrepareSummary_UsesLLM(t *testing.T) {
	preDiag := &scriptedClient{responses: []string{"concise case brief"}}
	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": reportingInvoker("r1")},
		map[string]llm.Client{"group_1": &scriptedClient{responses: []string{satisfiedVerdict}}},
		&scriptedClient{responses: []string{"report"}}, preDiag)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.NoError(t, err)

	require.Equal(t, 1, preDiag.calls)
	input := preDiag.inputs[0]
	assert.Equal(t, config.DefaultPreDiagnosisInstruction,
		input.Messages[len(input.Messages)-1].Content)

	seed := out.ExpertPool["group_1"].Messages[0]
	assert.Contains(t, seed.Content, "concise case brief")
}

func TestPipeline_PrepareSummary_FallbackOnLLMFailure(t *testing.T) {
	preDiag := &scriptedClient{err: errors.New("quota exceeded")}
	p := newTestPipeline(3,
		map[string]ExpertInvoker{"group_1": reportingInvoker("r1")},
		map[string]llm.Client{"group_1": &scriptedClient{responses: []string{satisfiedVerdict}}},
		&scriptedClient{responses: []string{"report"}}, preDiag)

	out, err := p.Invoke(context.Background(), diagnosisState())
	require.NoError(t, err)

	seed := out.ExpertPool["group_1"].Messages[0]
	assert.Contains(t, seed.Content, "user: I have burning pain in my hands")
	assert.Contains(t, seed.Content, "assistant: How long has this been going on?")
}
