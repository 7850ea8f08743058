package deliberation

import (
	"context"
	"log/slog"
	"time"

	"github.com/concilium-ai/concilium/pkg/events"
	"github.com/concilium-ai/concilium/pkg/llm"
)

// InvestigateRequest is the input to one deep-research pass.
type InvestigateRequest struct {
	GroupID string

	// Messages is the expert's full accumulated conversation.
	Messages []llm.Message

	// Evidences carries the previously recorded statements so the inner
	// agent can extend or replace them.
	Evidences []string
}

// InvestigateResult is the output of one successful deep-research pass.
type InvestigateResult struct {
	// FinalMessage is the last assistant message of the inner run; it
	// becomes the expert's report.
	FinalMessage string

	// Evidences replaces the slot's evidence list wholesale.
	Evidences []string
}

// ExpertInvoker is the black box behind one expert group. A returned error
// means the run failed as a whole (infrastructure, timeout, cancellation);
// recoverable tool trouble is the invoker's own business.
type ExpertInvoker interface {
	Investigate(ctx context.Context, req InvestigateRequest) (*InvestigateResult, error)
}

// InvokerFunc adapts a function to ExpertInvoker.
type InvokerFunc func(ctx context.Context, req InvestigateRequest) (*InvestigateResult, error)

// Investigate implements ExpertInvoker.
func (f InvokerFunc) Investigate(ctx context.Context, req InvestigateRequest) (*InvestigateResult, error) {
	return f(ctx, req)
}

// Runner executes one expert group's research pass against its slot.
// It never mutates the input slot; it returns an updated copy.
type Runner struct {
	invokers map[string]ExpertInvoker
	timeout  time.Duration
}

// NewRunner creates a runner over per-group invokers. A zero timeout
// disables the per-call bound.
func NewRunner(invokers map[string]ExpertInvoker, timeout time.Duration) *Runner {
	return &Runner{invokers: invokers, timeout: timeout}
}

// Run executes the research pass for one slot.
//
// Satisfied and errored slots are returned unchanged (skip). On success the
// report is replaced by the final assistant message, exactly that one
// message is appended to the history, and the evidences are replaced. Any
// failure freezes the slot: has_error is set, the report records the error,
// and the history is left untouched.
func (r *Runner) Run(ctx context.Context, slot *ExpertGroupState, progress *events.Publisher) *ExpertGroupState {
	if slot.IsSatisfied || slot.HasError {
		return slot
	}

	updated := slot.Clone()
	log := slog.With("group_id", slot.GroupID, "round", slot.RoundCount+1)

	invoker, ok := r.invokers[slot.GroupID]
	if !ok {
		return r.fail(updated, log, progress, "no invoker configured")
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := invoker.Investigate(runCtx, InvestigateRequest{
		GroupID:   slot.GroupID,
		Messages:  updated.Messages,
		Evidences: updated.Evidences,
	})
	if err != nil {
		return r.fail(updated, log, progress, err.Error())
	}

	updated.Report = result.FinalMessage
	updated.Messages = append(updated.Messages, llm.Message{
		Role:    llm.RoleAssistant,
		Content: result.FinalMessage,
	})
	updated.Evidences = append([]string(nil), result.Evidences...)
	updated.RoundCount++

	log.Info("Expert run completed", "evidences", len(updated.Evidences))
	progress.Publish(events.ExpertCompleted{GroupID: slot.GroupID, Round: updated.RoundCount})
	return updated
}

func (r *Runner) fail(slot *ExpertGroupState, log *slog.Logger, progress *events.Publisher, reason string) *ExpertGroupState {
	slot.HasError = true
	slot.Report = "execution error: " + reason
	slot.RoundCount++

	log.Warn("Expert run failed", "reason", reason)
	progress.Publish(events.ExpertFailed{GroupID: slot.GroupID, Round: slot.RoundCount, Reason: reason})
	return slot
}
