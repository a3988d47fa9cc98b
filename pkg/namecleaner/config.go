package namecleaner

import (
	"fmt"
	"slices"

	"github.com/hazyhaar/entity-cleaner/pkg/legal"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

// Config selects what a Cleaner does to a name. It is a value: the With*
// helpers return modified copies and a built Cleaner never changes.
type Config struct {
	Rules               []string   `yaml:"cleaning_rules" json:"cleaning_rules"`
	Jurisdiction        string     `yaml:"jurisdiction" json:"jurisdiction"`
	Language            string     `yaml:"language" json:"language"`
	NormalizeLegalTerms bool       `yaml:"normalize_legal_terms" json:"normalize_legal_terms"`
	MergeLegalTerms     bool       `yaml:"merge_legal_terms" json:"merge_legal_terms"`
	Case                rules.Case `yaml:"output_lettercase" json:"output_lettercase"`
	RemoveUnicode       bool       `yaml:"remove_unicode_chars" json:"remove_unicode_chars"`
	// MaxLegalSpan bounds the trailing tokens a legal form may cover.
	// Zero means legal.DefaultMaxSpan.
	MaxLegalSpan int `yaml:"max_legal_span" json:"max_legal_span"`
}

// DefaultConfig runs the default rule pipeline, expands us/en legal forms
// and lower-cases the result.
func DefaultConfig() Config {
	return Config{
		Rules:               rules.DefaultPipeline(),
		Jurisdiction:        legal.DefaultJurisdiction,
		Language:            legal.DefaultLanguage,
		NormalizeLegalTerms: true,
		Case:                rules.CaseLower,
	}
}

// WithRules replaces the rule pipeline.
func (c Config) WithRules(names ...string) Config {
	c.Rules = slices.Clone(names)
	return c
}

// WithRulesBefore runs names ahead of the current pipeline.
func (c Config) WithRulesBefore(names ...string) Config {
	c.Rules = append(slices.Clone(names), c.Rules...)
	return c
}

// WithRulesAfter runs names after the current pipeline.
func (c Config) WithRulesAfter(names ...string) Config {
	c.Rules = append(slices.Clone(c.Rules), names...)
	return c
}

func (c Config) validate() (Config, error) {
	letter, err := rules.ParseCase(string(c.Case))
	if err != nil {
		return c, err
	}
	c.Case = letter
	if c.MaxLegalSpan < 0 {
		return c, fmt.Errorf("max legal span %d is negative", c.MaxLegalSpan)
	}
	c.Rules = slices.Clone(c.Rules)
	return c, nil
}
