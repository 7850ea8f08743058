// Package events carries typed progress payloads from the deliberation
// stages to the outer message stream and the structured log. The stream is
// append-only and ordered by producer completion.
package events

import "fmt"

// Payload is one typed progress event. Render produces the human-readable
// line that lands in the outer message stream.
type Payload interface {
	Kind() string
	Render() string
}

// DiagnosisTriggered marks entry into the deep-diagnosis pipeline.
type DiagnosisTriggered struct {
	SessionID string
}

func (DiagnosisTriggered) Kind() string   { return "diagnosis.triggered" }
func (DiagnosisTriggered) Render() string { return "triggered deep diagnosis" }

// ExpertCompleted marks one expert group finishing a research run.
type ExpertCompleted struct {
	GroupID string
	Round   int
}

func (ExpertCompleted) Kind() string { return "expert.completed" }
func (e ExpertCompleted) Render() string {
	return fmt.Sprintf("expert group %s completed", e.GroupID)
}

// ExpertFailed marks one expert group transitioning to its terminal error
// state. The failure stays isolated to that slot.
type ExpertFailed struct {
	GroupID string
	Round   int
	Reason  string
}

func (ExpertFailed) Kind() string { return "expert.failed" }
func (e ExpertFailed) Render() string {
	return fmt.Sprintf("expert group %s failed: %s", e.GroupID, e.Reason)
}

// RoundStarted is emitted by the fan-out marker on the review → fan-out
// back edge.
type RoundStarted struct {
	Round int
}

func (RoundStarted) Kind() string { return "round.started" }
func (e RoundStarted) Render() string {
	return fmt.Sprintf("round %d starting", e.Round)
}

// ReviewCompleted summarizes one review pass.
type ReviewCompleted struct {
	Round     int
	Satisfied int
	Active    int
	Consensus bool
	Exhausted bool // round budget reached
}

func (ReviewCompleted) Kind() string { return "review.completed" }
func (e ReviewCompleted) Render() string {
	line := fmt.Sprintf("round %d review done (satisfied %d/%d)", e.Round, e.Satisfied, e.Active)
	switch {
	case e.Consensus:
		line += " — consensus reached"
	case e.Exhausted:
		line += " — round budget exhausted"
	}
	return line
}

// SummaryReady marks the final report composition.
type SummaryReady struct {
	ReportCount int
}

func (SummaryReady) Kind() string { return "summary.ready" }
func (e SummaryReady) Render() string {
	return fmt.Sprintf("final report composed from %d expert reports", e.ReportCount)
}
