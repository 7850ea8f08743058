package deliberation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/concilium-ai/concilium/pkg/llm"
)

const (
	portraitPreamble      = "The patient case under investigation and discussion:"
	dialogueSummaryHeader = "**Pre-diagnosis dialogue summary:**"
)

// Triage seeds the expert pool: renders the patient portrait, installs the
// initial message in every expert's private queue, and initializes the
// round bookkeeping.
type Triage struct {
	groupIDs  []string
	maxRounds int
}

// NewTriage creates the triage node for the configured group IDs.
func NewTriage(groupIDs []string, maxRounds int) *Triage {
	return &Triage{groupIDs: groupIDs, maxRounds: maxRounds}
}

// Node applies triage to the state.
func (t *Triage) Node(_ context.Context, state MDTState) (MDTState, error) {
	if state.Patient != nil {
		state.Portrait = state.Patient.Portrait()
	}

	seed := seedMessage(state.Portrait, state.SummaryWithDialogue)
	state.ExpertPool = make(map[string]*ExpertGroupState, len(t.groupIDs))
	for _, id := range t.groupIDs {
		state.ExpertPool[id] = &ExpertGroupState{
			GroupID:  id,
			Messages: []llm.Message{{Role: llm.RoleAssistant, Content: seed}},
			Report:   InitialReport,
		}
	}

	state.Blackboard = NewBlackboard()
	state.RoundCount = 1
	state.MaxRounds = t.maxRounds
	state.ConsensusReached = false

	slog.Info("Triage seeded expert pool",
		"groups", len(t.groupIDs),
		"max_rounds", t.maxRounds,
		"has_dialogue_summary", state.SummaryWithDialogue != "")
	return state, nil
}

// seedMessage is the only round-1 input an expert sees: the portrait,
// plus the dialogue summary under its labeled header when non-empty.
func seedMessage(portrait, dialogueSummary string) string {
	msg := fmt.Sprintf("%s\n\n%s", portraitPreamble, portrait)
	if dialogueSummary != "" {
		msg += fmt.Sprintf("\n\n%s\n%s", dialogueSummaryHeader, dialogueSummary)
	}
	return msg
}
