package summary

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// CitedEvidenceHeader opens the trailing section that resolves citations.
const CitedEvidenceHeader = "#### Cited Evidence"

var (
	// refRe matches stable citation tags: <ref>group_id.index</ref>.
	refRe = regexp.MustCompile(`<ref>\s*([A-Za-z0-9_]+\.[0-9]+)\s*</ref>`)

	// numericRefRe matches legacy per-expert tags: <ref>N</ref>.
	numericRefRe = regexp.MustCompile(`<ref>\s*([0-9]+)\s*</ref>`)
)

// Namespace is the stable citation map: group_id.index → evidence text.
// Index is 1-based within each group's evidence list; groups enumerate in
// ascending group_id. The provenance-carrying key is what keeps citations
// attributable when reports concatenate in any order.
type Namespace struct {
	keys    []string
	entries map[string]string
}

// BuildNamespace constructs the namespace from each group's evidence list.
func BuildNamespace(evidencesByGroup map[string][]string) *Namespace {
	ns := &Namespace{entries: map[string]string{}}

	groups := make([]string, 0, len(evidencesByGroup))
	for id := range evidencesByGroup {
		groups = append(groups, id)
	}
	sort.Strings(groups)

	for _, id := range groups {
		for i, text := range evidencesByGroup[id] {
			key := fmt.Sprintf("%s.%d", id, i+1)
			ns.keys = append(ns.keys, key)
			ns.entries[key] = text
		}
	}
	return ns
}

// Lookup returns the evidence text for a citation key.
func (ns *Namespace) Lookup(key string) (string, bool) {
	text, ok := ns.entries[key]
	return text, ok
}

// Keys returns all legal citation keys in namespace order.
func (ns *Namespace) Keys() []string {
	return ns.keys
}

// Len returns the number of legal citation keys.
func (ns *Namespace) Len() int {
	return len(ns.keys)
}

// RewriteNumericRefs converts a report's legacy numeric <ref>N</ref> tags,
// which index that one expert's own evidence list, into the stable
// <ref>group_id.N</ref> form. Already-qualified tags are left alone (the
// numeric pattern cannot match them).
func RewriteNumericRefs(report, groupID string) string {
	return numericRefRe.ReplaceAllString(report, "<ref>"+groupID+".$1</ref>")
}

// ResolveRefs scans text for stable citation tags and appends the trailing
// Cited Evidence section: one "[key] text" line per referenced key, in
// first-appearance order. Unknown keys are logged and stay literal in the
// body. Text without references is returned unchanged.
//
// Resolution is idempotent: text already carrying a Cited Evidence section
// passes through untouched.
func ResolveRefs(text string, ns *Namespace) string {
	if strings.Contains(text, CitedEvidenceHeader) {
		return text
	}
	matches := refRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}

	var ordered []string
	seen := map[string]bool{}
	for _, m := range matches {
		key := m[1]
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := ns.Lookup(key); !ok {
			slog.Warn("Final report cites unknown evidence key", "key", key)
			continue
		}
		ordered = append(ordered, key)
	}
	if len(ordered) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(CitedEvidenceHeader)
	sb.WriteString("\n")
	for _, key := range ordered {
		evidence, _ := ns.Lookup(key)
		fmt.Fprintf(&sb, "[%s] %s\n", key, evidence)
	}
	return strings.TrimRight(sb.String(), "\n")
}
