package main

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/entity-cleaner/pkg/country"
	"github.com/hazyhaar/entity-cleaner/pkg/legal"
	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

// stack is the reference data every command cleans with.
type stack struct {
	catalog   *rules.Catalog
	dict      *legal.Dictionary
	countries *country.Registry
	names     *namecleaner.Cleaner
}

type sources struct {
	// RulesFile adds regex rules to the built-in catalog.
	RulesFile string
	// LegalFormsDir overlays <cc>_legal_forms.json files on the bundled ones.
	LegalFormsDir string
}

func loadStack(src sources, cfg namecleaner.Config, logger *slog.Logger) (*stack, error) {
	cat := rules.Default()
	if src.RulesFile != "" {
		if err := cat.LoadFile(src.RulesFile); err != nil {
			return nil, err
		}
	}
	dict, err := legal.Load(logger)
	if err != nil {
		return nil, err
	}
	if src.LegalFormsDir != "" {
		if err := dict.LoadDir(src.LegalFormsDir); err != nil {
			return nil, err
		}
	}
	countries, err := country.Load()
	if err != nil {
		return nil, err
	}
	names, err := namecleaner.New(cfg,
		namecleaner.WithCatalog(cat),
		namecleaner.WithDictionary(dict),
		namecleaner.WithCountries(countries),
		namecleaner.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &stack{catalog: cat, dict: dict, countries: countries, names: names}, nil
}

// cleanerFlags registers the flags shaping a namecleaner.Config.
type cleanerFlags struct {
	rules, rulesBefore, rulesAfter string
	jurisdiction, language, letter string
	noLegal, merge, removeUnicode  bool
	src                            sources
}

func addCleanerFlags(fs *flag.FlagSet) *cleanerFlags {
	def := namecleaner.DefaultConfig()
	f := &cleanerFlags{}
	fs.StringVar(&f.rules, "rules", "", "comma-separated rule pipeline replacing the default one")
	fs.StringVar(&f.rulesBefore, "rules-before", "", "comma-separated rules run before the pipeline")
	fs.StringVar(&f.rulesAfter, "rules-after", "", "comma-separated rules run after the pipeline")
	fs.StringVar(&f.jurisdiction, "jurisdiction", def.Jurisdiction, "ISO alpha-2 code whose legal forms apply")
	fs.StringVar(&f.language, "language", def.Language, "language of the jurisdiction's legal forms")
	fs.StringVar(&f.letter, "case", string(def.Case), "output case: lower, upper, title or asis")
	fs.BoolVar(&f.noLegal, "no-legal", false, "leave legal forms unexpanded")
	fs.BoolVar(&f.merge, "merge", false, "also match the default (us/en) legal forms")
	fs.BoolVar(&f.removeUnicode, "remove-unicode", false, "drop non-ASCII characters first")
	fs.StringVar(&f.src.RulesFile, "rules-file", "", "YAML file of extra regex rules")
	fs.StringVar(&f.src.LegalFormsDir, "legal-forms-dir", "", "directory of <cc>_legal_forms.json overrides")
	return f
}

func (f *cleanerFlags) config() (namecleaner.Config, error) {
	cfg := namecleaner.DefaultConfig()
	if f.rules != "" {
		cfg = cfg.WithRules(splitList(f.rules)...)
	}
	if f.rulesBefore != "" {
		cfg = cfg.WithRulesBefore(splitList(f.rulesBefore)...)
	}
	if f.rulesAfter != "" {
		cfg = cfg.WithRulesAfter(splitList(f.rulesAfter)...)
	}
	letter, err := rules.ParseCase(f.letter)
	if err != nil {
		return cfg, fmt.Errorf("-case: %w", err)
	}
	cfg.Case = letter
	cfg.Jurisdiction = f.jurisdiction
	cfg.Language = f.language
	cfg.NormalizeLegalTerms = !f.noLegal
	cfg.MergeLegalTerms = f.merge
	cfg.RemoveUnicode = f.removeUnicode
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
