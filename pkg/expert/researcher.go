package expert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/concilium-ai/concilium/pkg/deliberation"
	"github.com/concilium-ai/concilium/pkg/llm"
)

// DefaultMaxIterations bounds one research pass. Each iteration is one model
// call; tool observations feed the next one.
const DefaultMaxIterations = 8

// DeepResearcher runs the iterative research loop behind one expert group:
// model call, tool call, observation, repeat until the model answers without
// a tool block or the iteration budget forces a conclusion.
type DeepResearcher struct {
	client        llm.Client
	systemPrompt  string
	tools         []Tool
	maxIterations int
}

// NewDeepResearcher creates a researcher. A non-positive maxIterations
// selects the default budget. The save_evidences tool is added per run and
// must not be in tools.
func NewDeepResearcher(client llm.Client, systemPrompt string, tools []Tool, maxIterations int) *DeepResearcher {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &DeepResearcher{
		client:        client,
		systemPrompt:  systemPrompt,
		tools:         tools,
		maxIterations: maxIterations,
	}
}

// Investigate implements deliberation.ExpertInvoker. A returned error means
// the pass failed as a whole; tool trouble is handled inside the loop by
// telling the model and letting it continue.
func (d *DeepResearcher) Investigate(ctx context.Context, req deliberation.InvestigateRequest) (*deliberation.InvestigateResult, error) {
	recorder := NewEvidenceRecorder()
	runTools := append(append([]Tool(nil), d.tools...), recorder)

	byName := map[string]Tool{}
	for _, t := range runTools {
		byName[t.Name()] = t
	}

	conversation := append([]llm.Message(nil), req.Messages...)
	log := slog.With("group_id", req.GroupID)

	for iteration := 1; iteration <= d.maxIterations; iteration++ {
		resp, err := d.generate(ctx, conversation, runTools)
		if err != nil {
			return nil, fmt.Errorf("research iteration %d: %w", iteration, err)
		}
		conversation = append(conversation, llm.Message{Role: llm.RoleAssistant, Content: resp})

		call, hasBlock, parseErr := ParseToolCall(resp)
		if !hasBlock {
			return d.result(resp, recorder, req.Evidences), nil
		}
		if parseErr != nil {
			log.Warn("Malformed tool block, feeding format feedback", "iteration", iteration, "error", parseErr)
			conversation = append(conversation, llm.Message{
				Role:    llm.RoleTool,
				Content: formatFeedback(parseErr),
			})
			continue
		}

		conversation = append(conversation, llm.Message{
			Role:    llm.RoleTool,
			Content: d.execute(ctx, log, byName, runTools, call),
		})
	}

	// Budget spent: force a conclusion with one last call, no further tools.
	log.Info("Iteration budget spent, forcing conclusion", "max_iterations", d.maxIterations)
	conversation = append(conversation, llm.Message{
		Role:    llm.RoleUser,
		Content: "The investigation budget is spent. Write your final report now, based on what you have. Do not call any more tools.",
	})
	resp, err := d.generate(ctx, conversation, nil)
	if err != nil {
		return nil, fmt.Errorf("forced conclusion: %w", err)
	}
	return d.result(resp, recorder, req.Evidences), nil
}

func (d *DeepResearcher) result(report string, recorder *EvidenceRecorder, previous []string) *deliberation.InvestigateResult {
	evidences := recorder.Evidences()
	if len(evidences) == 0 {
		// A pass that records nothing keeps the evidences of the last one.
		evidences = append([]string(nil), previous...)
	}
	return &deliberation.InvestigateResult{FinalMessage: report, Evidences: evidences}
}

// execute runs one tool call and renders the observation the model sees
// next. Infrastructure failures and unknown tools become notifications
// telling the model to continue with alternatives.
func (d *DeepResearcher) execute(ctx context.Context, log *slog.Logger, byName map[string]Tool, available []Tool, call *ToolCall) string {
	tool, ok := byName[call.Name]
	if !ok {
		log.Warn("Unknown tool requested", "tool", call.Name)
		return unknownToolNotice(call.Name, available)
	}

	result, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		log.Warn("Tool execution failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("The tool %s failed: %v. Continue the investigation with alternative approaches.", call.Name, err)
	}
	if result.IsError {
		return fmt.Sprintf("Tool %s error: %s", call.Name, result.Content)
	}
	return fmt.Sprintf("Tool %s result:\n%s", call.Name, result.Content)
}

// generate makes one model call with the system prompt and tool guide
// prepended. A nil tool list omits the guide (forced conclusion).
func (d *DeepResearcher) generate(ctx context.Context, conversation []llm.Message, tools []Tool) (string, error) {
	system := d.systemPrompt
	if len(tools) > 0 {
		system = strings.TrimSpace(system + "\n\n" + toolGuide(tools))
	}

	messages := conversation
	if system != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Content: system}}, conversation...)
	}

	resp, err := d.client.Generate(ctx, llm.GenerateInput{Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// toolGuide renders the available tools and the fenced call syntax.
func toolGuide(tools []Tool) string {
	sorted := append([]Tool(nil), tools...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	var sb strings.Builder
	sb.WriteString("You can call the following tools. To call one, emit exactly one fenced block:\n")
	sb.WriteString("```tool\n{\"name\": \"<tool name>\", \"arguments\": {...}}\n```\n")
	sb.WriteString("One tool call per response; the result comes back as the next message. ")
	sb.WriteString("When you are done, respond with your final report and no tool block.\n\nTools:\n")
	for _, t := range sorted {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), t.Description())
	}
	return sb.String()
}

func unknownToolNotice(name string, available []Tool) string {
	names := make([]string, 0, len(available))
	for _, t := range available {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return fmt.Sprintf("Unknown tool %q. Available tools: %s. Continue the investigation with one of those or write your final report.",
		name, strings.Join(names, ", "))
}

func formatFeedback(err error) string {
	return fmt.Sprintf("Could not parse your tool block (%v). Use exactly:\n```tool\n{\"name\": \"<tool name>\", \"arguments\": {...}}\n```\nOr respond with your final report and no tool block.", err)
}
