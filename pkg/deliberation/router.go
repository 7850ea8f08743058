package deliberation

import (
	"context"
	"log/slog"

	"github.com/concilium-ai/concilium/pkg/events"
)

// ShouldTerminate is the router predicate: the loop ends on consensus or
// when the round budget is spent. It mutates nothing.
func ShouldTerminate(state MDTState) bool {
	if state.ConsensusReached {
		slog.Info("Router: consensus reached, terminating loop", "round_count", state.RoundCount)
		return true
	}
	if state.RoundCount >= state.MaxRounds {
		slog.Info("Router: round budget reached, terminating loop",
			"round_count", state.RoundCount, "max_rounds", state.MaxRounds)
		return true
	}
	slog.Info("Router: no consensus, continuing", "round_count", state.RoundCount)
	return false
}

// RoundMarker sits on the review → fan-out back edge and emits the visible
// "round N starting" progress message. Observability only.
type RoundMarker struct{}

// NewRoundMarker creates the marker node.
func NewRoundMarker() *RoundMarker {
	return &RoundMarker{}
}

// Node emits the round-start event and passes the state through.
func (m *RoundMarker) Node(_ context.Context, state MDTState) (MDTState, error) {
	state.Progress.Publish(events.RoundStarted{Round: state.RoundCount})
	return state, nil
}
