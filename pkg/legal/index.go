package legal

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AmbiguousVariantError reports a variant mapped to two canonical terms
// within one jurisdiction.
type AmbiguousVariantError struct {
	Jurisdiction string
	Variant      string
	Canonical    [2]string
}

func (e *AmbiguousVariantError) Error() string {
	return fmt.Sprintf("legal forms %s: variant %q maps to both %q and %q",
		e.Jurisdiction, e.Variant, e.Canonical[0], e.Canonical[1])
}

// node is one token of a reversed variant: the root's children are the
// last tokens of every variant.
type node struct {
	children  map[string]*node
	canonical string
	terminal  bool
}

type index struct {
	root     *node
	variants int
}

func newIndex() *index {
	return &index{root: &node{children: make(map[string]*node)}}
}

// keyTokens folds a variant into its lookup tokens.
func keyTokens(variant string) []string {
	fields := strings.Fields(variant)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if k := foldToken(f); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// VariantKey returns the folded form under which a variant is matched.
// Two variants with the same key are the same entry in an index.
func VariantKey(variant string) string {
	return strings.Join(keyTokens(variant), " ")
}

func (ix *index) walk(tokens []string, create bool) *node {
	n := ix.root
	for i := len(tokens) - 1; i >= 0; i-- {
		child, ok := n.children[tokens[i]]
		if !ok {
			if !create {
				return nil
			}
			child = &node{children: make(map[string]*node)}
			n.children[tokens[i]] = child
		}
		n = child
	}
	return n
}

func (ix *index) insert(variant, canonical string) *AmbiguousVariantError {
	tokens := keyTokens(variant)
	if len(tokens) == 0 {
		return nil
	}
	n := ix.walk(tokens, true)
	if n.terminal {
		if n.canonical != canonical {
			return &AmbiguousVariantError{Variant: variant, Canonical: [2]string{n.canonical, canonical}}
		}
		return nil
	}
	n.terminal, n.canonical = true, canonical
	ix.variants++
	return nil
}

func (ix *index) insertIfAbsent(variant, canonical string) {
	tokens := keyTokens(variant)
	if len(tokens) == 0 {
		return
	}
	n := ix.walk(tokens, true)
	if n.terminal {
		return
	}
	n.terminal, n.canonical = true, canonical
	ix.variants++
}

// spacedTokens splits the dotted abbreviations of a variant into their
// letters, so "s.a.r.l." yields s a r l. It returns nil when no token has
// an inner dot.
func spacedTokens(variant string) []string {
	var out []string
	split := false
	for _, f := range strings.Fields(variant) {
		parts := strings.FieldsFunc(f, func(r rune) bool { return r == '.' })
		if len(parts) > 1 {
			split = true
		}
		for _, p := range parts {
			if k := foldToken(p); k != "" {
				out = append(out, k)
			}
		}
	}
	if !split {
		return nil
	}
	return out
}

// insertSpaced indexes the letter-split form of a dotted variant unless
// that key is already taken. Split forms are not counted as variants.
func (ix *index) insertSpaced(variant, canonical string) {
	tokens := spacedTokens(variant)
	if len(tokens) < 2 {
		return
	}
	if n := ix.walk(tokens, true); !n.terminal {
		n.terminal, n.canonical = true, canonical
	}
}

// longestSuffix returns how many trailing tokens the deepest matching
// variant covers, looking at no more than maxSpan significant tokens.
// Tokens that fold to nothing (a lone ".") are skipped but stay inside
// the replaced span.
func (ix *index) longestSuffix(tokens []string, maxSpan int) (int, string) {
	n := ix.root
	best, canonical := 0, ""
	seen := 0
	for i := len(tokens) - 1; i >= 0 && seen < maxSpan; i-- {
		k := foldToken(tokens[i])
		if k == "" {
			continue
		}
		seen++
		child, ok := n.children[k]
		if !ok {
			break
		}
		n = child
		if n.terminal {
			best, canonical = len(tokens)-i, n.canonical
		}
	}
	return best, canonical
}

var punctStripper = strings.NewReplacer(".", "", "/", "")

// foldToken lowercases, strips accents, dots and slashes, and trailing
// separators. "&" folds to "and".
func foldToken(tok string) string {
	// A chained transformer keeps state, so each call gets its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	t, _, err := transform.String(folder, strings.ToLower(tok))
	if err != nil {
		t = strings.ToLower(tok)
	}
	t = strings.TrimRight(punctStripper.Replace(t), ",;:")
	if t == "&" {
		return "and"
	}
	return t
}
