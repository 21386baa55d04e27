package skill

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "Python Programming", want: "python-programming"},
		{name: "punctuation collapses", input: "Machine Learning & AI", want: "machine-learning-ai"},
		{name: "accents fold", input: "résumé writing", want: "resume-writing"},
		{name: "leading trailing stripped", input: "  --data analysis-- ", want: "data-analysis"},
		{name: "numbers kept", input: "ISO 9001", want: "iso-9001"},
		{name: "empty", input: "", want: ""},
		{name: "only symbols", input: "!!!", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Python", want: "python"},
		{name: "trims whitespace", input: "  python  ", want: "python"},
		{name: "collapses inner whitespace", input: "data   analysis", want: "data-analysis"},
		{name: "strips trailing punctuation", input: "communication.", want: "communication"},
		{name: "ampersand expands", input: "R&D", want: "r-and-d"},
		{name: "en dash", input: "front–end", want: "front-end"},
		{name: "slash", input: "front/end", want: "front-end"},
		{name: "spaced hyphen", input: "front - end", want: "front-end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.input))
		})
	}
}

// Variants of the same skill must land on the same canonical key.
func TestCanonicalizeCollapsesVariants(t *testing.T) {
	variants := []string{
		"Python", "python", "PYTHON", " python ", "python.",
	}
	for _, v := range variants {
		assert.Equal(t, "python", Canonicalize(v), "variant %q", v)
	}

	dashes := []string{"front–end", "front—end", "front/end", "front - end", "front-end"}
	for _, v := range dashes {
		assert.Equal(t, "front-end", Canonicalize(v), "variant %q", v)
	}
}

func TestRegister(t *testing.T) {
	n := NewNormalizer(nil)

	key, ok := n.Register("Python", 0.9, "Advanced")
	require.True(t, ok)
	assert.Equal(t, "python", key)

	// Same skill, different spelling: merges into the same entry.
	key2, ok := n.Register("python.", 0.7, "Proficient")
	require.True(t, ok)
	assert.Equal(t, key, key2)

	entry, ok := n.Entry("python")
	require.True(t, ok)
	assert.Equal(t, 2, entry.Occurrences)
	assert.InDelta(t, 0.9, entry.MaxSimilarity, 1e-9)
	assert.InDelta(t, 0.8, entry.AvgSimilarity(), 1e-9)
	assert.Equal(t, []string{"Python", "python."}, entry.SortedAliases())
	assert.Equal(t, []string{"Advanced", "Proficient"}, entry.SortedBuckets())
	assert.Equal(t, 1, n.Len())
}

func TestRegisterRejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "single character", input: "x"},
		{name: "numeric only", input: "12345"},
		{name: "numeric with separators", input: "1, 2.5 - 3"},
		{name: "too long", input: strings.Repeat("a", 101)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(nil)
			_, ok := n.Register(tt.input, 0.5, "")
			assert.False(t, ok)
			assert.Equal(t, 0, n.Len())
		})
	}
}

func TestLookup(t *testing.T) {
	n := NewNormalizer(nil)
	_, ok := n.Register("Python", 0.9, "Advanced")
	require.True(t, ok)

	// Exact alias hit.
	id, ok := n.Lookup("Python")
	require.True(t, ok)
	assert.Equal(t, "skill:python", id)

	// Unseen spelling canonicalizes to an existing key.
	id, ok = n.Lookup("PYTHON ")
	require.True(t, ok)
	assert.Equal(t, "skill:python", id)

	// Unknown skill.
	_, ok = n.Lookup("Haskell")
	assert.False(t, ok)
}

func TestEntriesByOccurrence(t *testing.T) {
	n := NewNormalizer(nil)
	for i := 0; i < 3; i++ {
		n.Register("Python", 0.9, "")
	}
	n.Register("SQL", 0.8, "")
	n.Register("Go", 0.8, "")

	entries := n.EntriesByOccurrence()
	require.Len(t, entries, 3)
	assert.Equal(t, "python", entries[0].Key)
	// Ties break on key ascending.
	assert.Equal(t, "go", entries[1].Key)
	assert.Equal(t, "sql", entries[2].Key)
}

func TestStats(t *testing.T) {
	n := NewNormalizer(nil)
	n.Register("Python", 0.9, "")
	n.Register("python", 0.8, "")
	n.Register("SQL", 0.7, "")
	n.Register("1", 0.5, "") // rejected

	s := n.Stats()
	assert.Equal(t, 4, s.RawSkillStrings)
	assert.Equal(t, 2, s.CanonicalSkills)
	assert.Equal(t, 1, s.RejectedMentions)
	assert.InDelta(t, 0.5, s.DedupRatio, 1e-9)
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "python programming", want: "Python Programming"},
		{input: "SQL", want: "SQL"},
		{input: "AWS lambda", want: "AWS Lambda"},
		{input: "ms excel", want: "Ms Excel"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleCase(tt.input), "input %q", tt.input)
	}
}
