package deliberation

import (
	"github.com/concilium-ai/concilium/pkg/graph"
)

// Sub-graph node names.
const (
	nodeTriage      = "triage"
	nodeFanOut      = "fan_out"
	nodeReview      = "review"
	nodeRoundMarker = "round_marker"
)

// NewSubGraph assembles the deliberation loop:
//
//	triage → fan_out → review → (terminal | round_marker → fan_out)
//
// The review node's outgoing edges encode the router: consensus or an
// exhausted round budget ends the run, anything else loops back through
// the round marker.
func NewSubGraph(triage *Triage, fanOut *FanOut, reviewer *Reviewer, marker *RoundMarker) *graph.Graph[MDTState] {
	g := graph.New[MDTState]("mdt")
	g.AddNode(nodeTriage, triage.Node)
	g.AddNode(nodeFanOut, fanOut.Node)
	g.AddNode(nodeReview, reviewer.Node)
	g.AddNode(nodeRoundMarker, marker.Node)

	g.AddEdge(nodeTriage, nodeFanOut)
	g.AddEdge(nodeFanOut, nodeReview)
	g.AddEdgeIf(nodeReview, nodeRoundMarker, func(s MDTState) bool { return !ShouldTerminate(s) })
	g.AddEdge(nodeRoundMarker, nodeFanOut)
	return g
}
