package deliberation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// indexedSlotResult pairs a runner's returned slot with its dispatch index
// so merge order stays deterministic regardless of completion order.
type indexedSlotResult struct {
	index int
	slot  *ExpertGroupState
}

// FanOut concurrently invokes the expert runner for every slot that is not
// terminal. Each invocation works on a cloned slot and writes only to its
// own key; siblings are never cancelled by one runner's failure.
type FanOut struct {
	runner *Runner
}

// NewFanOut creates the fan-out node.
func NewFanOut(runner *Runner) *FanOut {
	return &FanOut{runner: runner}
}

// Node dispatches all active experts and joins before returning: the
// reviewer behind this node relies on the join as its serialization
// barrier.
func (f *FanOut) Node(ctx context.Context, state MDTState) (MDTState, error) {
	ids := dispatchableIDs(state.ExpertPool)
	if len(ids) == 0 {
		slog.Info("Fan-out found no dispatchable experts")
		return state, nil
	}

	slog.Info("Fan-out dispatching experts", "count", len(ids), "round", state.RoundCount)

	resultsCh := make(chan indexedSlotResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(index int, slot *ExpertGroupState) {
			defer wg.Done()
			resultsCh <- indexedSlotResult{index: index, slot: f.runner.Run(ctx, slot, state.Progress)}
		}(i, state.ExpertPool[id])
	}

	wg.Wait()
	close(resultsCh)

	results := make([]indexedSlotResult, 0, len(ids))
	for r := range resultsCh {
		results = append(results, r)
	}
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })

	for _, r := range results {
		state.ExpertPool[r.slot.GroupID] = r.slot
	}
	return state, nil
}

// dispatchableIDs returns the sorted IDs of slots the fan-out should run.
func dispatchableIDs(pool map[string]*ExpertGroupState) []string {
	ids := make([]string, 0, len(pool))
	for id, slot := range pool {
		if slot.NeedsRun() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
