// Package rules holds the named text-rewrite rules applied to raw entity
// names and the pipeline executor that chains them.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// ErrInvalidUTF8 is wrapped by RuleApplicationError when a rule receives
// text that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8 input")

// UnknownRuleError reports a pipeline step naming a rule that is not registered.
type UnknownRuleError struct {
	Name string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown cleaning rule %q", e.Name)
}

// RuleApplicationError reports a rule that could not transform its input.
type RuleApplicationError struct {
	Rule string
	Err  error
}

func (e *RuleApplicationError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuleApplicationError) Unwrap() error { return e.Err }

// Kind tells how a rule rewrites text.
type Kind string

const (
	KindRegex      Kind = "regex"
	KindStructural Kind = "structural"
)

// Rule is a named, immutable text transform.
type Rule struct {
	name        string
	description string
	kind        Kind
	pattern     string
	fn          func(string) string
}

// NewRule builds a structural rule from a Go function. fn must be total
// over valid UTF-8 and idempotent on its own output.
func NewRule(name, description string, fn func(string) string) *Rule {
	return &Rule{name: name, description: description, kind: KindStructural, fn: fn}
}

// Spec declares a regex substitution rule.
type Spec struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
	Repeat      bool   `yaml:"repeat,omitempty" json:"repeat,omitempty"`
}

// Compile turns a Spec into a Rule.
func (s Spec) Compile() (*Rule, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("rule with pattern %q: missing name", s.Pattern)
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", s.Name, err)
	}
	repl := s.Replacement
	fn := func(text string) string {
		return re.ReplaceAllLiteralString(text, repl)
	}
	if s.Repeat {
		fn = untilStable(fn)
	}
	return &Rule{
		name:        s.Name,
		description: s.Description,
		kind:        KindRegex,
		pattern:     s.Pattern,
		fn:          fn,
	}, nil
}

// untilStable reapplies fn until its output stops changing. Every repeating
// rule shrinks some finite quantity of its input per pass, so the bound is
// only a guard against a badly written custom pattern.
func untilStable(fn func(string) string) func(string) string {
	return func(text string) string {
		for i := 0; i <= len(text)+1; i++ {
			next := fn(text)
			if next == text {
				return next
			}
			text = next
		}
		return text
	}
}

func (r *Rule) Name() string        { return r.name }
func (r *Rule) Description() string { return r.description }
func (r *Rule) Kind() Kind          { return r.kind }

// Pattern returns the regular expression of a regex rule, empty otherwise.
func (r *Rule) Pattern() string { return r.pattern }

// Apply runs the rule on text.
func (r *Rule) Apply(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", &RuleApplicationError{Rule: r.name, Err: ErrInvalidUTF8}
	}
	return r.fn(text), nil
}
