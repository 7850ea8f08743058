package patient

import (
	"fmt"
	"sort"
	"strings"
)

// Portrait renders the record as deterministic text: the canonical input
// every expert group receives. Sections appear in the fixed order
// (base_info, then the seven sequences), followed by extra sections in
// insertion order. Empty sections are omitted.
func (r *Record) Portrait() string {
	var sb strings.Builder

	if len(r.BaseInfo) > 0 {
		writeSectionHeader(&sb, SectionBaseInfo)
		keys := make([]string, 0, len(r.BaseInfo))
		for k := range r.BaseInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %v\n", k, r.BaseInfo[k])
		}
	}

	for _, name := range sequenceSections {
		seq, _ := r.section(name)
		writeFactSection(&sb, name, *seq)
	}
	for _, extra := range r.Extras {
		writeFactSection(&sb, extra.Name, extra.Facts)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writeSectionHeader(sb *strings.Builder, name string) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "## %s\n", name)
}

// writeFactSection renders one sequence as "- [ID: <id>] k1=v1, k2=v2"
// lines. Metadata fields stay out of the pair list; the identifier remains
// visible as the line prefix so experts can reference facts by ID.
func writeFactSection(sb *strings.Builder, name string, facts []Fact) {
	if len(facts) == 0 {
		return
	}
	writeSectionHeader(sb, name)
	for _, f := range facts {
		id, _ := f[FieldID].(string)

		keys := make([]string, 0, len(f))
		for k := range f {
			if k == FieldID || k == FieldTime {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, f[k]))
		}
		fmt.Fprintf(sb, "- [ID: %s] %s\n", id, strings.Join(pairs, ", "))
	}
}
