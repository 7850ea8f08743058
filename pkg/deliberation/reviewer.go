package deliberation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/concilium-ai/concilium/pkg/events"
	"github.com/concilium-ai/concilium/pkg/llm"
)

// Verdict is the reviewer's parsed JSON output.
type Verdict struct {
	IsSatisfied         bool   `json:"is_satisfied"`
	ReinvestigateReason string `json:"reinvestigate_reason"`
}

// ReviewTarget is the per-group model used to elicit verdicts.
type ReviewTarget struct {
	Client       llm.Client
	SystemPrompt string
}

// Reviewer runs the cross-review pass: publishes first-time reports to the
// blackboard, shows every active expert its peers' reports, elicits a
// JSON verdict, and updates the consensus bookkeeping.
type Reviewer struct {
	targets        map[string]ReviewTarget
	promptTemplate string // the {round_count} token receives the round number
	timeout        time.Duration
}

// roundCountToken is the placeholder the reviewer template carries for the
// current round number. Token replacement keeps literal % signs in prompt
// files intact.
const roundCountToken = "{round_count}"

// NewReviewer creates the review node.
func NewReviewer(targets map[string]ReviewTarget, promptTemplate string, timeout time.Duration) *Reviewer {
	return &Reviewer{
		targets:        targets,
		promptTemplate: promptTemplate,
		timeout:        timeout,
	}
}

// verdictOutcome carries one expert's review result back to the serialized
// application phase.
type verdictOutcome struct {
	groupID  string
	messages []llm.Message
	verdict  Verdict
	err      error
}

// Node runs one review pass.
//
// The pass has a serialization barrier at entry: every pre-review report is
// on the blackboard before any verdict call reads peer reports. Verdict
// calls then run concurrently; results are applied serially. A failed call
// or unparseable verdict freezes only that slot.
func (r *Reviewer) Node(ctx context.Context, state MDTState) (MDTState, error) {
	round := state.RoundCount
	state.Blackboard.Conflicts = map[string]string{}

	ids := sortedIDs(state.ExpertPool)
	for _, id := range ids {
		slot := state.ExpertPool[id]
		if !slot.NeedsRun() {
			continue
		}
		// Publish only first-time reports; revised reports after an
		// unsatisfied round keep the originally published text.
		if _, ok := state.Blackboard.PublishedReports[id]; !ok {
			state.Blackboard.PublishedReports[id] = slot.Report
		}
	}

	reviewIDs := dispatchableIDs(state.ExpertPool)
	outcomes := make([]verdictOutcome, len(reviewIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range reviewIDs {
		i := i
		slot := state.ExpertPool[id]
		g.Go(func() error {
			outcomes[i] = r.review(gctx, state, slot, round)
			return nil
		})
	}
	// Goroutines only record outcomes, they never return errors.
	_ = g.Wait()

	for _, out := range outcomes {
		slot := state.ExpertPool[out.groupID]
		if out.err != nil {
			slog.Warn("Review verdict failed, freezing slot",
				"group_id", out.groupID, "round", round, "error", out.err)
			slot.HasError = true
			continue
		}

		slot.Messages = out.messages
		slot.IsSatisfied = out.verdict.IsSatisfied
		if out.verdict.IsSatisfied {
			slot.ReinvestigateReason = ""
			continue
		}

		slot.ReinvestigateReason = out.verdict.ReinvestigateReason
		state.Blackboard.Conflicts[out.groupID] = out.verdict.ReinvestigateReason
		slot.Messages = append(slot.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: reinvestigateInstruction(out.verdict.ReinvestigateReason),
		})
	}

	active, satisfied := state.ActiveCount()
	state.ConsensusReached = active == 0 || satisfied == active
	state.RoundCount++

	state.Progress.Publish(events.ReviewCompleted{
		Round:     round,
		Satisfied: satisfied,
		Active:    active,
		Consensus: state.ConsensusReached,
		Exhausted: !state.ConsensusReached && state.RoundCount >= state.MaxRounds,
	})
	return state, nil
}

// review composes the review conversation for one expert and elicits its
// verdict. The returned messages include the composed review turns so they
// persist in the slot's history.
func (r *Reviewer) review(ctx context.Context, state MDTState, slot *ExpertGroupState, round int) verdictOutcome {
	out := verdictOutcome{groupID: slot.GroupID}

	target, ok := r.targets[slot.GroupID]
	if !ok || target.Client == nil {
		out.err = fmt.Errorf("no review client configured for %s", slot.GroupID)
		return out
	}

	messages := composeReviewMessages(state, slot, r.promptTemplate, round)
	out.messages = messages

	request := messages
	if target.SystemPrompt != "" {
		request = append([]llm.Message{{Role: llm.RoleSystem, Content: target.SystemPrompt}}, messages...)
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := target.Client.Generate(callCtx, llm.GenerateInput{
		Messages: request,
		JSONMode: true,
	})
	if err != nil {
		out.err = fmt.Errorf("verdict call failed: %w", err)
		return out
	}

	verdict, err := parseVerdict(resp.Content)
	if err != nil {
		out.err = err
		return out
	}
	out.verdict = verdict
	return out
}

// composeReviewMessages builds the expert's review conversation: the
// portrait inserted as a human message at position 1, then the peer-report
// block, then the reviewer instruction with the round number substituted.
func composeReviewMessages(state MDTState, slot *ExpertGroupState, template string, round int) []llm.Message {
	messages := slot.Clone().Messages

	portraitMsg := llm.Message{Role: llm.RoleUser, Content: state.Portrait}
	if len(messages) < 1 {
		messages = append(messages, portraitMsg)
	} else {
		messages = append(messages[:1], append([]llm.Message{portraitMsg}, messages[1:]...)...)
	}

	instruction := strings.ReplaceAll(template, roundCountToken, strconv.Itoa(round))
	messages = append(messages,
		llm.Message{Role: llm.RoleUser, Content: peerReportsBlock(state.ExpertPool, slot.GroupID)},
		llm.Message{Role: llm.RoleUser, Content: instruction},
	)
	return messages
}

// peerReportsBlock renders all other experts' current reports in a delimited
// block, ordered by group id. Current means the pool's latest report text,
// so a peer revised after an unsatisfied round is reviewed against its
// revision; the blackboard keeps the first-published text for the summarizer
// only.
func peerReportsBlock(pool map[string]*ExpertGroupState, selfID string) string {
	var sb strings.Builder
	sb.WriteString("Reports from the other expert groups:\n")

	ids := make([]string, 0, len(pool))
	for id, slot := range pool {
		if id != selfID && slot.Report != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		sb.WriteString("\n(no other reports available)\n")
		return sb.String()
	}
	for _, id := range ids {
		fmt.Fprintf(&sb, "\n=== Report from %s ===\n%s\n", id, pool[id].Report)
	}
	return sb.String()
}

func reinvestigateInstruction(reason string) string {
	return fmt.Sprintf(
		"Your report needs a targeted re-investigation before the panel can proceed.\nReason: %s\nRe-investigate this specific point and rewrite your report, keeping the original report format.",
		reason)
}

// parseVerdict decodes the reviewer LLM output leniently: providers wrap
// JSON in fences or prose more often than not.
func parseVerdict(raw string) (Verdict, error) {
	var verdict Verdict
	extracted, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return verdict, fmt.Errorf("verdict parse failed: %w", err)
	}
	if err := json.Unmarshal([]byte(extracted), &verdict); err != nil {
		return verdict, fmt.Errorf("verdict parse failed: %w", err)
	}
	return verdict, nil
}

func sortedIDs(pool map[string]*ExpertGroupState) []string {
	ids := make([]string, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
