package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinRules(t *testing.T) {
	c := Default()
	tests := []struct {
		rule string
		in   string
		want string
	}{
		{"remove_email", "acme contact@acme.com corp", "acme  corp"},
		{"remove_url", "acme https://acme.com/x corp", "acme   corp"},
		{"remove_www_address", "acme www.acme.com", "acme  "},
		{"remove_mentions", "@@acme", " acme"},
		{"remove_hashtags", "#acme", " acme"},
		{"remove_asterisk", "acme**", "acme "},
		{"remove_words_in_parentheses", "acme (holding (uk)) ltd", "acme   ltd"},
		{"remove_question_marks_in_parentheses", "acme (??) ltd", "acme   ltd"},
		{"remove_question_marks_in_parentheses", "acme (uk) ltd", "acme (uk) ltd"},
		{"remove_words_in_brackets", "acme [old] ltd", "acme   ltd"},
		{"remove_words_in_curly_brackets", "acme {x} ltd", "acme   ltd"},
		{"remove_words_in_asterisk", "acme *defunct* ltd", "acme   ltd"},
		{"add_space_around_ampersand", "a&b", "a & b"},
		{"add_space_around_ampersand", "a  &  b", "a & b"},
		{"replace_ampersand_by_and", "a&b", "a and b"},
		{"replace_ampersand_between_spaces_by_and", "a & b", "a and b"},
		{"replace_ampersand_between_spaces_by_and", "a&b", "a&b"},
		{"replace_hyphen_by_space", "coca-cola", "coca cola"},
		{"replace_hyphen_between_spaces_by_single_space", "a - b", "a b"},
		{"replace_hyphen_underscore_by_space", "a-b_c", "a b c"},
		{"replace_underscore_by_space", "a_b", "a b"},
		{"replace_underscore_between_spaces_by_single_space", "a _ b", "a b"},
		{"remove_all_punctuation", "a.b,c!", "a b c "},
		{"remove_all_punctuation", "société_x", "société_x"},
		{"remove_punctuation_except_dot", "a.b,c", "a.b c"},
		{"remove_text_punctuation", "a.b;c", "a b c"},
		{"remove_text_punctuation_except_dot", "a.b;c", "a.b c"},
		{"remove_math_symbols", "a+b-c", "a b c"},
		{"remove_math_symbols_except_dash", "a+b-c", "a b-c"},
		{"remove_parentheses", "(a)", " a "},
		{"remove_brackets", "[a]", " a "},
		{"remove_curly_brackets", "{a}", " a "},
		{"remove_single_quote_next_character", "mcdonald's corp", "mcdonald  corp"},
		{"remove_single_quote", "o'neil", "o neil"},
		{"remove_double_quote", `"acme"`, " acme "},
		{"remove_numbers", "acme 3m x1 corp", "acme     corp"},
		{"remove_all_letters", "abc123", "123"},
		{"remove_spaces", "a b\tc", "abc"},
		{"remove_word_the_from_the_end", "acme, the", "acme"},
		{"remove_word_the_from_the_end", "acme the the", "acme"},
		{"remove_word_the_from_the_end", "bathe", "bathe"},
		{"enforce_single_space_between_words", "  a   b  ", "a b"},
		{"place_word_the_at_the_beginning", "Acme Group, The", "The Acme Group"},
		{"place_word_the_at_the_beginning", "the", "the"},
		{"place_word_the_at_the_beginning", "the acme the", "the acme"},
		{"place_word_the_at_the_beginning", "theatre", "theatre"},
		{"remove_accents", "Société Générale", "Societe Generale"},
		{"transliterate_to_ascii", "Nestlé Straße", "Nestle Strasse"},
		{"remove_unicode", "Nestlé", "Nestl"},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			r, err := c.Get(tt.rule)
			if err != nil {
				t.Fatalf("Get(%q): %v", tt.rule, err)
			}
			got, err := r.Apply(tt.in)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.rule, tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultPipelineResolves(t *testing.T) {
	c := Default()
	if _, err := c.Resolve(DefaultPipeline()); err != nil {
		t.Fatalf("default pipeline: %v", err)
	}
}

func TestApplyDefaultPipeline(t *testing.T) {
	c := Default()
	got, err := c.Apply("Glass  Coatings & Concepts (CBG) LLC", DefaultPipeline())
	if err != nil {
		t.Fatal(err)
	}
	if want := "Glass Coatings and Concepts LLC"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyOrderMatters(t *testing.T) {
	c := Default()
	a, _ := c.Apply("a & b", []string{"replace_ampersand_between_spaces_by_and", "remove_spaces"})
	b, _ := c.Apply("a & b", []string{"remove_spaces", "replace_ampersand_between_spaces_by_and"})
	if a != "aandb" {
		t.Errorf("spaces last = %q, want %q", a, "aandb")
	}
	if b != "a&b" {
		t.Errorf("spaces first = %q, want %q", b, "a&b")
	}
}

func TestApplyDuplicateRules(t *testing.T) {
	c := Default()
	got, err := c.Apply("a (b (c))", []string{"remove_parentheses", "remove_parentheses"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a  b  c  " {
		t.Errorf("got %q", got)
	}
}

func TestApplyUnknownRuleFailsFast(t *testing.T) {
	c := Default()
	got, err := c.Apply("Acme (X)", []string{"remove_words_in_parentheses", "no_such_rule"})
	var unknown *UnknownRuleError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownRuleError", err)
	}
	if unknown.Name != "no_such_rule" {
		t.Errorf("Name = %q", unknown.Name)
	}
	if got != "" {
		t.Errorf("partial result %q returned", got)
	}
}

func TestApplyInvalidUTF8(t *testing.T) {
	c := Default()
	_, err := c.Apply("acme \xff", []string{"remove_accents"})
	var appErr *RuleApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want RuleApplicationError", err)
	}
	if appErr.Rule != "remove_accents" {
		t.Errorf("Rule = %q", appErr.Rule)
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Error("error does not wrap ErrInvalidUTF8")
	}
}

func TestApplyEmpty(t *testing.T) {
	c := Default()
	got, err := c.Apply("", DefaultPipeline())
	if err != nil || got != "" {
		t.Errorf("Apply(\"\") = %q, %v", got, err)
	}
	got, err = c.Apply("Acme", nil)
	if err != nil || got != "Acme" {
		t.Errorf("empty pipeline = %q, %v", got, err)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	c := Default()
	n := c.Len()
	c.Register(NewRule("remove_numbers", "", func(s string) string { return "x" }))
	if c.Len() != n {
		t.Errorf("Len = %d, want %d", c.Len(), n)
	}
	got, _ := c.Apply("123", []string{"remove_numbers"})
	if got != "x" {
		t.Errorf("got %q, want overwritten rule output", got)
	}
	if other, _ := Default().Apply("123", []string{"remove_numbers"}); other != " " {
		t.Errorf("fresh catalog affected: %q", other)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `rules:
  - name: replace_plc_suffix
    pattern: '(?i)\bp\.l\.c\.?$'
    replacement: plc
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c := Default()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, err := c.Apply("Acme P.L.C.", []string{"replace_plc_suffix"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Acme plc" {
		t.Errorf("got %q", got)
	}
}

func TestRegisterSpecsBadPattern(t *testing.T) {
	c := NewCatalog()
	err := c.RegisterSpecs([]Spec{
		{Name: "ok", Pattern: "a"},
		{Name: "bad", Pattern: "("},
	})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after failed registration", c.Len())
	}
}

func TestList(t *testing.T) {
	infos := Default().List()
	if len(infos) == 0 {
		t.Fatal("no rules listed")
	}
	defaults := 0
	for i, info := range infos {
		if i > 0 && infos[i-1].Name >= info.Name {
			t.Errorf("not sorted at %d: %q >= %q", i, infos[i-1].Name, info.Name)
		}
		if info.Default {
			defaults++
		}
		if info.Kind == KindRegex && info.Pattern == "" {
			t.Errorf("regex rule %q has no pattern", info.Name)
		}
	}
	if defaults != len(DefaultPipeline()) {
		t.Errorf("default rules = %d, want %d", defaults, len(DefaultPipeline()))
	}
}

func TestLegacyNames(t *testing.T) {
	c := Default()
	legacy := []string{
		"place_word_the_at_the_beginning",
		"remove_words_in_parentheses",
		"repeat_remove_words_in_parentheses",
		"remove_words_in_asterisk",
		"add_space_between_amperstand",
		"replace_amperstand_between_space_by_AND",
		"replace_hyphen_by_space",
		"replace_underscore_by_space",
		"remove_text_puctuation_except_dot",
		"remove_math_symbols",
		"remove_parentheses",
		"remove_brackets",
		"remove_curly_brackets",
		"remove_single_quote_next_character",
		"remove_double_quote",
		"enforce_single_space_between_words",
	}
	for _, name := range []string{
		"Glass  Coatings & Concepts (CBG) LLC",
		"Acme-Widgets_Intl; Inc.",
		"Widget Company, The",
	} {
		want, err := c.Apply(name, DefaultPipeline())
		if err != nil {
			t.Fatal(err)
		}
		got, err := c.Apply(name, legacy)
		if err != nil {
			t.Fatalf("legacy pipeline: %v", err)
		}
		if got != want {
			t.Errorf("legacy pipeline on %q = %q, default gives %q", name, got, want)
		}
	}

	r, err := c.Get("replace_amperstand_by_AND")
	if err != nil || r.Name() != "replace_ampersand_by_and" {
		t.Errorf("Get legacy name = %v, %v", r, err)
	}

	c.Register(NewRule("treat_AND", "", func(s string) string { return "own" }))
	if got, _ := c.Apply("a&b", []string{"treat_AND"}); got != "own" {
		t.Errorf("registered rule lost to legacy name: %q", got)
	}
}

func TestListAliases(t *testing.T) {
	for _, info := range Default().List() {
		if info.Name != "remove_text_punctuation" {
			continue
		}
		if len(info.Aliases) != 1 || info.Aliases[0] != "remove_text_puctuation" {
			t.Errorf("aliases = %v", info.Aliases)
		}
		return
	}
	t.Fatal("remove_text_punctuation not listed")
}
