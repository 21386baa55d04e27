// Package skill canonicalizes free-text skill labels.
//
// Hundreds of thousands of raw skill strings collapse into a small set
// of canonical entries so that the same skill mentioned on different
// jobs produces one shared node. Canonicalization is rule-based and
// deterministic: identical labels always map to identical keys.
package skill

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Labels shorter than this after normalization are rejected as noise.
const minNormalizedLen = 2

// Labels longer than this are almost certainly descriptions, not skills.
const maxNormalizedLen = 100

var (
	trailingPunct = regexp.MustCompile(`[.,:;!?]+$`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	slashRun      = regexp.MustCompile(`\s*/\s*`)
	hyphenSpacing = regexp.MustCompile(`\s*-\s*`)
	ampersand     = regexp.MustCompile(`\b&\b`)
	withAbbr      = regexp.MustCompile(`\bw/\b`)
	withoutAbbr   = regexp.MustCompile(`\bw/o\b`)
	numericOnly   = regexp.MustCompile(`^[\d\s.,-]+$`)
)

// Entry is one canonical skill with its provenance.
type Entry struct {
	Key           string
	Label         string
	Aliases       map[string]struct{}
	Occurrences   int
	MaxSimilarity float64
	SumSimilarity float64
	Buckets       map[string]struct{}
}

// AvgSimilarity returns the mean mapping similarity across all
// registered mentions of this skill.
func (e *Entry) AvgSimilarity() float64 {
	if e.Occurrences == 0 {
		return 0
	}
	return e.SumSimilarity / float64(e.Occurrences)
}

// SortedAliases returns the alias set as a sorted slice.
func (e *Entry) SortedAliases() []string {
	out := make([]string, 0, len(e.Aliases))
	for a := range e.Aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// SortedBuckets returns the observed bucket set as a sorted slice.
func (e *Entry) SortedBuckets() []string {
	out := make([]string, 0, len(e.Buckets))
	for b := range e.Buckets {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Stats summarizes a normalization run for the report.
type Stats struct {
	RawSkillStrings    int     `json:"raw_skill_strings"`
	CanonicalSkills    int     `json:"canonical_skills"`
	RejectedMentions   int     `json:"rejected_mentions"`
	DedupRatio         float64 `json:"dedup_ratio"`
	AvgAliasesPerSkill float64 `json:"avg_aliases_per_skill"`
}

// Normalizer owns the skill dictionary. It is populated via Register
// during the parse pass and handed read-only to the graph builder.
type Normalizer struct {
	dictionary map[string]*Entry
	aliasIndex map[string]string // trimmed raw label -> canonical key

	rawCount      int
	rejectedCount int

	logger *slog.Logger
}

// NewNormalizer creates an empty normalizer. A nil logger discards.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Normalizer{
		dictionary: make(map[string]*Entry),
		aliasIndex: make(map[string]string),
		logger:     logger,
	}
}

// Canonicalize maps a raw skill label to its canonical key. It is a
// pure function of the label text; an empty result means the label
// carries no usable content. The step order is fixed: each step feeds
// the next.
func Canonicalize(raw string) string {
	return Slugify(normalize(raw))
}

// normalize applies the text normalization pipeline up to (but not
// including) slugging.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = trailingPunct.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")

	// Unicode dashes to ASCII hyphen: en-dash, em-dash, minus sign.
	s = strings.NewReplacer("–", "-", "—", "-", "−", "-").Replace(s)

	// Slashes become hyphens, then spacing around hyphens collapses so
	// "a - b", "a -b" and "a-b" agree.
	s = slashRun.ReplaceAllString(s, "-")
	s = hyphenSpacing.ReplaceAllString(s, "-")

	// Whole-word abbreviation expansion.
	s = ampersand.ReplaceAllString(s, " and ")
	s = withAbbr.ReplaceAllString(s, "with ")
	s = withoutAbbr.ReplaceAllString(s, "without ")

	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Register records one mention of a raw label in the dictionary and
// returns the canonical key. ok is false when the label is rejected
// (empty, too short, too long, or numeric-only); rejected mentions are
// counted but never treated as errors.
func (n *Normalizer) Register(raw string, similarity float64, bucket string) (key string, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	n.rawCount++

	normalized := normalize(trimmed)
	if normalized == "" || len(normalized) < minNormalizedLen {
		n.rejectedCount++
		n.logger.Debug("skipping short skill", slog.String("label", trimmed))
		return "", false
	}
	if len(normalized) > maxNormalizedLen {
		n.rejectedCount++
		n.logger.Debug("skipping long skill", slog.String("label", trimmed[:50]))
		return "", false
	}
	if numericOnly.MatchString(normalized) {
		n.rejectedCount++
		return "", false
	}

	key = Slugify(normalized)
	if key == "" {
		n.rejectedCount++
		return "", false
	}

	entry, exists := n.dictionary[key]
	if !exists {
		entry = &Entry{
			Key:     key,
			Label:   titleCase(trimmed),
			Aliases: make(map[string]struct{}),
			Buckets: make(map[string]struct{}),
		}
		n.dictionary[key] = entry
	}

	entry.Aliases[trimmed] = struct{}{}
	entry.Occurrences++
	if similarity > entry.MaxSimilarity {
		entry.MaxSimilarity = similarity
	}
	entry.SumSimilarity += similarity
	if bucket != "" {
		entry.Buckets[bucket] = struct{}{}
	}

	n.aliasIndex[trimmed] = key
	return key, true
}

// NodeID returns the graph node ID for a canonical key.
func NodeID(key string) string {
	return "skill:" + key
}

// Lookup resolves a raw label to its skill node ID. It first consults
// the alias index, then falls back to canonicalizing on the fly; the
// key must already exist in the dictionary.
func (n *Normalizer) Lookup(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if key, ok := n.aliasIndex[trimmed]; ok {
		return NodeID(key), true
	}
	if key := Canonicalize(trimmed); key != "" {
		if _, ok := n.dictionary[key]; ok {
			return NodeID(key), true
		}
	}
	return "", false
}

// Entry returns the dictionary entry for a canonical key.
func (n *Normalizer) Entry(key string) (*Entry, bool) {
	e, ok := n.dictionary[key]
	return e, ok
}

// Len returns the number of canonical skills.
func (n *Normalizer) Len() int {
	return len(n.dictionary)
}

// Keys returns all canonical keys in sorted order, for deterministic
// iteration.
func (n *Normalizer) Keys() []string {
	keys := make([]string, 0, len(n.dictionary))
	for k := range n.dictionary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EntriesByOccurrence returns entries sorted by occurrence count
// descending, key ascending on ties.
func (n *Normalizer) EntriesByOccurrence() []*Entry {
	entries := make([]*Entry, 0, len(n.dictionary))
	for _, e := range n.dictionary {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Occurrences != entries[j].Occurrences {
			return entries[i].Occurrences > entries[j].Occurrences
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Stats returns normalization statistics for the report.
func (n *Normalizer) Stats() Stats {
	s := Stats{
		RawSkillStrings:  n.rawCount,
		CanonicalSkills:  len(n.dictionary),
		RejectedMentions: n.rejectedCount,
	}
	if n.rawCount > 0 {
		s.DedupRatio = 1 - float64(len(n.dictionary))/float64(n.rawCount)
	}
	if len(n.dictionary) > 0 {
		total := 0
		for _, e := range n.dictionary {
			total += len(e.Aliases)
		}
		s.AvgAliasesPerSkill = float64(total) / float64(len(n.dictionary))
	}
	return s
}

// LogTop logs the top n skills by occurrence.
func (n *Normalizer) LogTop(count int) {
	entries := n.EntriesByOccurrence()
	if len(entries) > count {
		entries = entries[:count]
	}
	n.logger.Info(fmt.Sprintf("top %d skills by occurrence", len(entries)))
	for _, e := range entries {
		n.logger.Info("  "+e.Label,
			slog.Int("occurrences", e.Occurrences),
			slog.Int("variants", len(e.Aliases)))
	}
}

// titleCase capitalizes each word, preserving short all-caps words as
// acronyms ("SQL", "AWS").
func titleCase(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if w == strings.ToUpper(w) && len(w) <= 5 && strings.ContainsFunc(w, isLetter) {
			continue
		}
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	lower := strings.ToLower(w)
	r := []rune(lower)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
