package skill

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes accented characters and strips combining marks,
// so "résumé" folds to "resume" before slugging.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Slugify converts text to a lowercase, ASCII, hyphen-separated slug.
// Runs of non-alphanumeric characters collapse to a single hyphen and
// leading/trailing hyphens are removed.
//
//	Slugify("Python Programming") -> "python-programming"
//	Slugify("Machine Learning & AI") -> "machine-learning-ai"
func Slugify(text string) string {
	if text == "" {
		return ""
	}

	s := strings.ToLower(text)
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}
