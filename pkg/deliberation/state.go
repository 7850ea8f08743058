// Package deliberation implements the multi-expert consensus core: the
// shared blackboard, the expert pool state machine, the triage / fan-out /
// review / routing nodes, and their assembly into a bounded round loop.
package deliberation

import (
	"github.com/concilium-ai/concilium/pkg/events"
	"github.com/concilium-ai/concilium/pkg/llm"
	"github.com/concilium-ai/concilium/pkg/patient"
)

// InitialReport is the placeholder report before an expert's first run.
const InitialReport = "waiting"

// ExpertGroupState is one expert group's private slot in the pool.
type ExpertGroupState struct {
	// GroupID is stable across rounds.
	GroupID string `json:"group_id"`

	// Messages is the expert's private conversation, strictly append-only
	// except for the reviewer's portrait insertion at position 1.
	Messages []llm.Message `json:"messages"`

	// Report is the current report text.
	Report string `json:"report"`

	// Evidences holds the factual statements recorded by the last run;
	// replaced wholesale on each successful run.
	Evidences []string `json:"evidences"`

	// IsSatisfied is the verdict from the last review.
	IsSatisfied bool `json:"is_satisfied"`

	// ReinvestigateReason is set only when IsSatisfied is false.
	ReinvestigateReason string `json:"reinvestigate_reason,omitempty"`

	// HasError is terminal: once true the expert is frozen and excluded
	// from all subsequent activity.
	HasError bool `json:"has_error"`

	// RoundCount is the number of completed research invocations.
	RoundCount int `json:"round_count"`
}

// Active reports whether the slot still participates in consensus.
func (s *ExpertGroupState) Active() bool {
	return !s.HasError
}

// NeedsRun reports whether the fan-out should dispatch this slot.
func (s *ExpertGroupState) NeedsRun() bool {
	return !s.HasError && !s.IsSatisfied
}

// Clone deep-copies the slot so a runner can work on it in isolation.
func (s *ExpertGroupState) Clone() *ExpertGroupState {
	dup := *s
	dup.Messages = append([]llm.Message(nil), s.Messages...)
	dup.Evidences = append([]string(nil), s.Evidences...)
	return &dup
}

// Blackboard is the shared publication and conflict registry. Written only
// by the reviewer; read by the reviewer and the summarizer.
type Blackboard struct {
	// PublishedReports maps group_id → report text, write-once per group:
	// a report is published on the expert's first review appearance and
	// not refreshed afterwards.
	PublishedReports map[string]string `json:"published_reports"`

	// Conflicts maps group_id → the reviewer's reinvestigation reason;
	// reset at the start of every review pass.
	Conflicts map[string]string `json:"conflicts"`

	// CommonUnderstandings is reserved for forward compatibility and not
	// populated by the core.
	CommonUnderstandings map[string]string `json:"common_understandings"`
}

// NewBlackboard creates an empty blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{
		PublishedReports:     map[string]string{},
		Conflicts:            map[string]string{},
		CommonUnderstandings: map[string]string{},
	}
}

// MDTState is the umbrella state of the deliberation sub-graph.
type MDTState struct {
	Patient             *patient.Record
	SummaryWithDialogue string
	Portrait            string

	// ExpertPool maps group_id → slot. Mutated by triage (initial fill),
	// each runner on its own key, and the reviewer on any key; the graph
	// topology keeps those phases disjoint in time.
	ExpertPool map[string]*ExpertGroupState

	Blackboard *Blackboard

	RoundCount       int
	MaxRounds        int
	ConsensusReached bool

	// Progress is the shared stream for coarse progress events.
	Progress *events.Publisher
}

// ActiveCount returns the number of non-errored slots and how many of those
// are satisfied.
func (s *MDTState) ActiveCount() (active, satisfied int) {
	for _, slot := range s.ExpertPool {
		if slot.Active() {
			active++
			if slot.IsSatisfied {
				satisfied++
			}
		}
	}
	return active, satisfied
}

// MainState is the outer pipeline state: MDTState plus the one-way
// diagnosis gate, the dialogue turns, and the final report.
type MainState struct {
	MDTState

	SessionID string

	// Messages holds the user/assistant dialogue turns plus appended
	// progress messages. Append-only.
	Messages []llm.Message

	// StartDiagnosis gates entry into the deliberation sub-graph.
	StartDiagnosis bool

	// SummaryStyle is an optional user-supplied formatting directive for
	// the final report.
	SummaryStyle string

	FinalReport string
}

// mergePool applies the sub-graph's expert pool to the outer state using
// union-overwrite by key: every group present in the update replaces the
// outer slot wholesale.
func mergePool(outer, update map[string]*ExpertGroupState) map[string]*ExpertGroupState {
	if outer == nil {
		outer = map[string]*ExpertGroupState{}
	}
	for id, slot := range update {
		outer[id] = slot
	}
	return outer
}
