package rules

import (
	_ "embed"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed data/rules.yaml
var builtinYAML []byte

// defaultPipeline is the rule sequence applied to company names when the
// caller does not choose one.
var defaultPipeline = []string{
	"place_word_the_at_the_beginning",
	"remove_words_in_parentheses",
	"remove_words_in_asterisk",
	"add_space_around_ampersand",
	"replace_ampersand_between_spaces_by_and",
	"replace_hyphen_by_space",
	"replace_underscore_by_space",
	"remove_text_punctuation_except_dot",
	"remove_math_symbols",
	"remove_parentheses",
	"remove_brackets",
	"remove_curly_brackets",
	"remove_single_quote_next_character",
	"remove_double_quote",
	"enforce_single_space_between_words",
}

// legacyNames maps rule names found in older settings files to the rules
// that replaced them.
var legacyNames = map[string]string{
	"treat_AND":                               "replace_ampersand_by_and",
	"replace_amperstand_by_AND":               "replace_ampersand_by_and",
	"add_space_between_amperstand":            "add_space_around_ampersand",
	"replace_amperstand_between_space_by_AND": "replace_ampersand_between_spaces_by_and",
	"remove_text_puctuation":                  "remove_text_punctuation",
	"remove_text_puctuation_except_dot":       "remove_text_punctuation_except_dot",
	"repeat_remove_words_in_parentheses":      "remove_words_in_parentheses",
}

// DefaultPipeline returns a copy of the default company-name rule sequence.
func DefaultPipeline() []string {
	return slices.Clone(defaultPipeline)
}

var builtin = sync.OnceValue(func() []*Rule {
	specs, err := ParseSpecs(builtinYAML)
	if err != nil {
		panic("rules: embedded catalog: " + err.Error())
	}
	out := make([]*Rule, 0, len(specs)+5)
	for _, s := range specs {
		r, err := s.Compile()
		if err != nil {
			panic("rules: embedded catalog: " + err.Error())
		}
		out = append(out, r)
	}
	return append(out,
		NewRule("enforce_single_space_between_words",
			"collapse runs of whitespace and trim both ends", CollapseSpaces),
		NewRule("place_word_the_at_the_beginning",
			`move a trailing "the" to the front`, placeTheFirst),
		NewRule("remove_accents",
			"strip combining diacritics", StripAccents),
		NewRule("transliterate_to_ascii",
			"replace non-ASCII characters with ASCII approximations", transliterate),
		NewRule("remove_unicode",
			"drop every non-ASCII character", RemoveNonASCII),
	)
})

// CollapseSpaces trims s and squeezes inner whitespace to single spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripAccents removes combining marks: Société -> Societe.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func transliterate(s string) string {
	return unidecode.Unidecode(s)
}

// RemoveNonASCII drops every rune above U+007F.
func RemoveNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

var trailingThe = regexp.MustCompile(`(?i)(?:^|[\s,]+)(the)\s*$`)

// placeTheFirst rewrites "Acme, The" as "The Acme". Repeated trailing
// articles collapse into one leading article.
func placeTheFirst(s string) string {
	rest, article := s, ""
	for {
		m := trailingThe.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		article = rest[m[2]:m[3]]
		rest = rest[:m[0]]
	}
	if article == "" || strings.TrimSpace(rest) == "" {
		return s
	}
	if f := strings.Fields(rest); strings.EqualFold(f[0], "the") {
		return rest
	}
	return article + " " + rest
}
