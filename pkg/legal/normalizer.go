package legal

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer replaces a trailing legal-form abbreviation with its canonical
// term. Mid-name abbreviations are never touched.
type Normalizer struct {
	terms   *TermSet
	maxSpan int
}

// NewNormalizer returns a normalizer over ts. maxSpan <= 0 means DefaultMaxSpan.
func NewNormalizer(ts *TermSet, maxSpan int) *Normalizer {
	if maxSpan <= 0 {
		maxSpan = DefaultMaxSpan
	}
	return &Normalizer{terms: ts, maxSpan: maxSpan}
}

// Terms returns the term set the normalizer reads.
func (n *Normalizer) Terms() *TermSet { return n.terms }

// Match is a legal form found at the end of a name.
type Match struct {
	// Span is the matched text as it appeared in the name.
	Span      string `json:"span"`
	Canonical string `json:"canonical"`
	Tokens    int    `json:"tokens"`
}

// Find returns the longest legal form ending the name.
func (n *Normalizer) Find(name string) (Match, bool) {
	tokens := strings.Fields(name)
	span, canonical := n.terms.idx.longestSuffix(tokens, n.maxSpan)
	if span == 0 {
		return Match{}, false
	}
	return Match{
		Span:      strings.Join(tokens[len(tokens)-span:], " "),
		Canonical: canonical,
		Tokens:    span,
	}, true
}

// Normalize rewrites the trailing legal form of name, if any. The inserted
// term follows the letter case of the text it replaces. Names without a
// match are returned unchanged; otherwise whitespace is collapsed.
func (n *Normalizer) Normalize(name string) string {
	tokens := strings.Fields(name)
	span, canonical := n.terms.idx.longestSuffix(tokens, n.maxSpan)
	if span == 0 {
		return name
	}
	keep := tokens[:len(tokens)-span]
	term := matchCase(canonical, tokens[len(tokens)-span:])
	if len(keep) == 0 {
		return term
	}
	return strings.Join(keep, " ") + " " + term
}

// matchCase renders canonical in the letter case of the replaced tokens:
// all upper, all lower or title case. Mixed spans keep the stored form.
func matchCase(canonical string, replaced []string) string {
	var upper, lower bool
	title := true
	for _, tok := range replaced {
		first := true
		for _, r := range tok {
			if !unicode.IsLetter(r) {
				continue
			}
			if unicode.IsUpper(r) {
				upper = true
				if !first {
					title = false
				}
			} else if unicode.IsLower(r) {
				lower = true
				if first {
					title = false
				}
			}
			first = false
		}
	}
	switch {
	case upper && !lower:
		return cases.Upper(language.Und).String(canonical)
	case lower && !upper:
		return cases.Lower(language.Und).String(canonical)
	case upper && title:
		return cases.Title(language.Und).String(canonical)
	default:
		return canonical
	}
}
