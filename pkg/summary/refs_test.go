package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNamespace_OrderAndKeys(t *testing.T) {
	ns := BuildNamespace(map[string][]string{
		"group_2": {"ev2a", "ev2b", "ev2c"},
		"group_1": {"ev1a", "ev1b"},
	})

	assert.Equal(t, []string{
		"group_1.1", "group_1.2",
		"group_2.1", "group_2.2", "group_2.3",
	}, ns.Keys(), "groups enumerate ascending, indices are 1-based")

	text, ok := ns.Lookup("group_2.3")
	require.True(t, ok)
	assert.Equal(t, "ev2c", text)

	_, ok = ns.Lookup("group_2.4")
	assert.False(t, ok)
}

func TestRewriteNumericRefs(t *testing.T) {
	tests := []struct {
		name   string
		report string
		want   string
	}{
		{
			name:   "numeric tags qualified",
			report: "finding A <ref>1</ref> and B <ref> 2 </ref>",
			want:   "finding A <ref>group_1.1</ref> and B <ref>group_1.2</ref>",
		},
		{
			name:   "already qualified tags untouched",
			report: "peer finding <ref>group_2.1</ref>",
			want:   "peer finding <ref>group_2.1</ref>",
		},
		{
			name:   "no tags",
			report: "plain report",
			want:   "plain report",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteNumericRefs(tt.report, "group_1"))
		})
	}
}

func TestResolveRefs(t *testing.T) {
	ns := BuildNamespace(map[string][]string{
		"group_1": {"alpha-gal activity low", "GLA variant found"},
		"group_2": {"LVH on echo"},
	})

	t.Run("appends section in first-appearance order", func(t *testing.T) {
		text := "B <ref>group_2.1</ref> then A <ref>group_1.1</ref> and A again <ref>group_2.1</ref>."
		got := ResolveRefs(text, ns)

		assert.Contains(t, got, CitedEvidenceHeader)
		assert.Contains(t, got, "[group_2.1] LVH on echo")
		assert.Contains(t, got, "[group_1.1] alpha-gal activity low")
		// each legal key appears exactly once in the section
		assert.Equal(t, 1, strings.Count(got, "[group_2.1]"))
		assert.Less(t, strings.Index(got, "[group_2.1]"), strings.Index(got, "[group_1.1]"))
	})

	t.Run("unknown keys stay literal and out of the section", func(t *testing.T) {
		text := "known <ref>group_1.2</ref> unknown <ref>group_9.1</ref>"
		got := ResolveRefs(text, ns)

		assert.Contains(t, got, "<ref>group_9.1</ref>", "unknown tag remains in the body")
		assert.NotContains(t, got, "[group_9.1]")
		assert.Contains(t, got, "[group_1.2] GLA variant found")
	})

	t.Run("no references returns text unchanged", func(t *testing.T) {
		assert.Equal(t, "no citations here", ResolveRefs("no citations here", ns))
	})

	t.Run("only unknown references returns text unchanged", func(t *testing.T) {
		text := "just <ref>bogus.9</ref>"
		got := ResolveRefs(text, ns)
		assert.Equal(t, text, got)
		assert.NotContains(t, got, CitedEvidenceHeader)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := ResolveRefs("cite <ref>group_1.1</ref>", ns)
		twice := ResolveRefs(once, ns)
		assert.Equal(t, once, twice)
	})
}
