package deliberation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/concilium-ai/concilium/pkg/config"
	"github.com/concilium-ai/concilium/pkg/events"
	"github.com/concilium-ai/concilium/pkg/graph"
	"github.com/concilium-ai/concilium/pkg/llm"
	"github.com/concilium-ai/concilium/pkg/summary"
)

// Pipeline is the outer graph: the diagnosis gate, dialogue-summary
// preparation, the deliberation sub-graph, and the final summarizer.
type Pipeline struct {
	subGraph     *graph.Graph[MDTState]
	summarizer   *summary.Summarizer
	preDiagnosis llm.Client // nil: PrepareSummary always falls back
	preDiagCfg   *config.AgentConfig
	timeout      time.Duration
}

// NewPipeline assembles the full pipeline from configuration and the
// per-group collaborators.
func NewPipeline(
	cfg *config.Config,
	invokers map[string]ExpertInvoker,
	reviewTargets map[string]ReviewTarget,
	summarizer *summary.Summarizer,
	preDiagnosis llm.Client,
) *Pipeline {
	triage := NewTriage(cfg.ExpertGroupIDs(), cfg.MDT.MaxRounds)
	runner := NewRunner(invokers, cfg.MDT.PerCallTimeout)
	fanOut := NewFanOut(runner)
	reviewer := NewReviewer(reviewTargets, cfg.ReviewerPrompt, cfg.MDT.PerCallTimeout)
	marker := NewRoundMarker()

	return &Pipeline{
		subGraph:     NewSubGraph(triage, fanOut, reviewer, marker),
		summarizer:   summarizer,
		preDiagnosis: preDiagnosis,
		preDiagCfg:   cfg.PreDiagnosisAgent,
		timeout:      cfg.MDT.PerCallTimeout,
	}
}

// Invoke is the single entry point. A state with start_diagnosis=false
// passes through unchanged (the caller resumes the dialogue on the next
// user turn). Otherwise the deliberation runs to a terminal state and the
// final report is composed.
func (p *Pipeline) Invoke(ctx context.Context, state MainState) (MainState, error) {
	if !state.StartDiagnosis {
		return state, nil
	}
	if state.SessionID == "" {
		state.SessionID = uuid.NewString()
	}

	progress := events.NewPublisher(slog.With("session_id", state.SessionID))
	state.Progress = progress
	progress.Publish(events.DiagnosisTriggered{SessionID: state.SessionID})

	state.SummaryWithDialogue = p.prepareSummary(ctx, state)

	out, err := p.subGraph.Run(ctx, state.MDTState)
	state.mergeSubGraphOutput(out)
	if err != nil {
		state.appendProgress()
		return state, fmt.Errorf("deliberation failed: %w", err)
	}

	report, err := p.summarizer.Summarize(ctx, summary.Input{
		Portrait:         out.Portrait,
		PublishedReports: out.Blackboard.PublishedReports,
		EvidencesByGroup: publishedEvidences(out),
		Style:            state.SummaryStyle,
	})
	if err != nil {
		state.appendProgress()
		return state, err
	}

	state.FinalReport = report
	progress.Publish(events.SummaryReady{ReportCount: len(out.Blackboard.PublishedReports)})
	state.appendProgress()
	return state, nil
}

// mergeSubGraphOutput folds the sub-graph's terminal state into the outer
// state: expert-pool slots merge union-overwrite by key, the remaining
// fields replace outer values.
func (s *MainState) mergeSubGraphOutput(out MDTState) {
	s.ExpertPool = mergePool(s.ExpertPool, out.ExpertPool)
	s.Portrait = out.Portrait
	s.Blackboard = out.Blackboard
	s.RoundCount = out.RoundCount
	s.MaxRounds = out.MaxRounds
	s.ConsensusReached = out.ConsensusReached
}

// appendProgress drains the progress stream into the outer message stream
// as assistant messages, preserving publication order.
func (s *MainState) appendProgress() {
	for _, line := range s.Progress.Drain() {
		s.Messages = append(s.Messages, llm.Message{Role: llm.RoleAssistant, Content: line})
	}
}

// publishedEvidences collects the evidence lists of every published group,
// the base set of the citation namespace.
func publishedEvidences(out MDTState) map[string][]string {
	evidences := make(map[string][]string, len(out.Blackboard.PublishedReports))
	for id := range out.Blackboard.PublishedReports {
		if slot, ok := out.ExpertPool[id]; ok {
			evidences[id] = slot.Evidences
		}
	}
	return evidences
}

// prepareSummary ensures a non-empty dialogue summary before the sub-graph
// runs. It prefers one LLM call over the dialogue; on failure (or with no
// pre-diagnosis agent configured) it falls back to a deterministic
// role-labelled concatenation.
func (p *Pipeline) prepareSummary(ctx context.Context, state MainState) string {
	if state.SummaryWithDialogue != "" {
		return state.SummaryWithDialogue
	}
	dialogue := dialogueTurns(state.Messages)
	if len(dialogue) == 0 {
		return ""
	}

	if p.preDiagnosis != nil {
		brief, err := p.summarizeDialogue(ctx, dialogue)
		if err == nil {
			return brief
		}
		slog.Warn("Dialogue summary LLM failed, using deterministic fallback", "error", err)
	}
	return concatDialogue(dialogue)
}

func (p *Pipeline) summarizeDialogue(ctx context.Context, dialogue []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(dialogue)+2)
	if p.preDiagCfg != nil && p.preDiagCfg.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: p.preDiagCfg.SystemPrompt})
	}
	messages = append(messages, dialogue...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: config.DefaultPreDiagnosisInstruction})

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.preDiagnosis.Generate(callCtx, llm.GenerateInput{Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// dialogueTurns filters the outer stream down to user/assistant turns.
func dialogueTurns(messages []llm.Message) []llm.Message {
	var turns []llm.Message
	for _, m := range messages {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			turns = append(turns, m)
		}
	}
	return turns
}

// concatDialogue is the deterministic fallback: each turn labelled by role,
// empty content replaced by a placeholder.
func concatDialogue(dialogue []llm.Message) string {
	var sb strings.Builder
	for _, m := range dialogue {
		content := m.Content
		if strings.TrimSpace(content) == "" {
			content = "[non-text content]"
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, content)
	}
	return strings.TrimRight(sb.String(), "\n")
}
