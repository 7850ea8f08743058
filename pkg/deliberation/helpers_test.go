package deliberation

import (
	"context"
	"sync"

	"github.com/concilium-ai/concilium/pkg/config"
	"github.com/concilium-ai/concilium/pkg/llm"
	"github.com/concilium-ai/concilium/pkg/patient"
)

// stubInvoker scripts one expert group's research passes. ctxFn, when set,
// takes precedence and sees the call context.
type stubInvoker struct {
	mu    sync.Mutex
	calls int
	fn    func(req InvestigateRequest, call int) (*InvestigateResult, error)
	ctxFn func(ctx context.Context, req InvestigateRequest) (*InvestigateResult, error)
}

func (s *stubInvoker) Investigate(ctx context.Context, req InvestigateRequest) (*InvestigateResult, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()
	if s.ctxFn != nil {
		return s.ctxFn(ctx, req)
	}
	return s.fn(req, call)
}

func (s *stubInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func reportingInvoker(report string, evidences ...string) *stubInvoker {
	return &stubInvoker{fn: func(InvestigateRequest, int) (*InvestigateResult, error) {
		return &InvestigateResult{FinalMessage: report, Evidences: evidences}, nil
	}}
}

func failingInvoker(err error) *stubInvoker {
	return &stubInvoker{fn: func(InvestigateRequest, int) (*InvestigateResult, error) {
		return nil, err
	}}
}

// scriptedClient pops one canned response per Generate call, repeating the
// last one when the script runs out.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	inputs    []llm.GenerateInput
}

func (c *scriptedClient) Generate(_ context.Context, input llm.GenerateInput) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, input)
	idx := c.calls
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return &llm.Response{Content: c.responses[idx]}, nil
}

func (c *scriptedClient) Close() error { return nil }

const (
	satisfiedVerdict   = `{"is_satisfied": true, "reinvestigate_reason": ""}`
	unsatisfiedVerdict = `{"is_satisfied": false, "reinvestigate_reason": "%s"}`
)

func testRecord() *patient.Record {
	rec := patient.NewRecord()
	rec.SetBaseInfo(map[string]any{"age": 34, "sex": "male"})
	return rec
}

// testConfig builds a minimal in-memory configuration for the given groups.
func testConfig(maxRounds int, groupIDs ...string) *config.Config {
	groups := map[string]*config.ExpertGroupConfig{}
	for _, id := range groupIDs {
		groups[id] = &config.ExpertGroupConfig{
			MainAgent: &config.AgentConfig{Provider: config.ProviderOpenAI, ModelName: "test"},
		}
	}
	mdt := config.DefaultMDTConfig()
	mdt.MaxRounds = maxRounds
	cfg := &config.Config{
		ExpertGroups:   groups,
		SummaryAgent:   &config.AgentConfig{Provider: config.ProviderOpenAI, ModelName: "test"},
		MDT:            mdt,
		ReviewerPrompt: config.DefaultReviewerPrompt,
	}
	return cfg
}
