// Package summary collapses the surviving expert reports into one final
// document with a traceable, provenance-stable citation map.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/concilium-ai/concilium/pkg/config"
	"github.com/concilium-ai/concilium/pkg/llm"
)

// Input is the terminal deliberation outcome the summarizer works from.
type Input struct {
	// Portrait is included in the prompt when non-empty.
	Portrait string

	// PublishedReports maps group_id → report text from the blackboard.
	PublishedReports map[string]string

	// EvidencesByGroup maps group_id → that expert's current evidences.
	EvidencesByGroup map[string][]string

	// Style is the user-supplied formatting directive; empty selects the
	// default clinical-report skeleton.
	Style string
}

// Summarizer composes the final report with a single LLM call and resolves
// the citation references afterwards.
type Summarizer struct {
	client       llm.Client
	systemPrompt string
	timeout      time.Duration
}

// NewSummarizer creates a summarizer over the configured summary agent.
func NewSummarizer(client llm.Client, systemPrompt string, timeout time.Duration) *Summarizer {
	return &Summarizer{
		client:       client,
		systemPrompt: systemPrompt,
		timeout:      timeout,
	}
}

// Summarize produces the final report text.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (string, error) {
	if len(in.PublishedReports) == 0 {
		return "", &NoReportsError{}
	}

	ns := BuildNamespace(in.EvidencesByGroup)
	prompt := composePrompt(in, ns)

	messages := []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	if s.systemPrompt != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Content: s.systemPrompt}}, messages...)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.Generate(callCtx, llm.GenerateInput{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	report := ResolveRefs(resp.Content, ns)

	slog.Info("Final report composed",
		"reports", len(in.PublishedReports),
		"citation_keys", ns.Len())
	return report, nil
}

// composePrompt assembles the human prompt: optional portrait, the
// published reports with group separators (legacy numeric refs rewritten
// into the stable namespace), the evidence guide, and the format directive.
func composePrompt(in Input, ns *Namespace) string {
	var sb strings.Builder

	if in.Portrait != "" {
		sb.WriteString("Patient case portrait:\n\n")
		sb.WriteString(in.Portrait)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Expert group reports:\n")
	for _, id := range sortedGroupIDs(in.PublishedReports) {
		fmt.Fprintf(&sb, "\n=== Report from %s ===\n%s\n", id, RewriteNumericRefs(in.PublishedReports[id], id))
	}

	sb.WriteString("\n")
	sb.WriteString(evidenceGuide(ns))

	style := in.Style
	if style == "" {
		style = config.DefaultSummaryStyle
	}
	sb.WriteString("\n")
	sb.WriteString(style)

	return sb.String()
}

// evidenceGuide tells the model which citation keys are legal and what
// each refers to.
func evidenceGuide(ns *Namespace) string {
	var sb strings.Builder
	sb.WriteString("Evidence reference guide. Cite evidence as <ref>group_id.index</ref>; ")
	sb.WriteString("only the keys below are legal:\n")
	if ns.Len() == 0 {
		sb.WriteString("(no recorded evidence)\n")
		return sb.String()
	}
	for _, key := range ns.Keys() {
		text, _ := ns.Lookup(key)
		fmt.Fprintf(&sb, "[%s] %s\n", key, text)
	}
	sb.WriteString("Example: \"cardiac involvement <ref>" + ns.Keys()[0] + "</ref>\"\n")
	return sb.String()
}

func sortedGroupIDs(reports map[string]string) []string {
	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
