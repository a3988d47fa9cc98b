// Package namecleaner turns raw company names into comparable strings: a
// rule pipeline removes noise, the trailing legal form is expanded for the
// name's jurisdiction and the result is rendered in one letter case.
package namecleaner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/entity-cleaner/pkg/country"
	"github.com/hazyhaar/entity-cleaner/pkg/legal"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
	"github.com/hazyhaar/entity-cleaner/pkg/table"
)

// Cleaner applies one Config. It is immutable and safe for concurrent use.
type Cleaner struct {
	cfg       Config
	catalog   *rules.Catalog
	dict      *legal.Dictionary
	countries *country.Registry
	logger    *slog.Logger

	pipeline []*rules.Rule
	terms    *legal.TermSet
}

// Option overrides a collaborator of the Cleaner.
type Option func(*Cleaner)

// WithCatalog uses cat instead of rules.Default().
func WithCatalog(cat *rules.Catalog) Option { return func(c *Cleaner) { c.catalog = cat } }

// WithDictionary uses d instead of the bundled legal forms.
func WithDictionary(d *legal.Dictionary) Option { return func(c *Cleaner) { c.dict = d } }

// WithCountries lets per-name jurisdictions be given as country names or
// alpha3 codes. They are mapped to alpha2 through reg.
func WithCountries(reg *country.Registry) Option { return func(c *Cleaner) { c.countries = reg } }

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Cleaner) { c.logger = l } }

// New validates cfg and builds a Cleaner. Every rule name is resolved here,
// so an unknown rule fails before any name is cleaned.
func New(cfg Config, opts ...Option) (*Cleaner, error) {
	c := &Cleaner{}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.catalog == nil {
		c.catalog = rules.Default()
	}
	if c.dict == nil {
		d, err := legal.Load(c.logger)
		if err != nil {
			return nil, fmt.Errorf("load legal forms: %w", err)
		}
		c.dict = d
	}
	return c.build(cfg)
}

// With returns a Cleaner for cfg that shares this one's catalog,
// dictionary, country registry and logger.
func (c *Cleaner) With(cfg Config) (*Cleaner, error) {
	next := &Cleaner{catalog: c.catalog, dict: c.dict, countries: c.countries, logger: c.logger}
	return next.build(cfg)
}

func (c *Cleaner) build(cfg Config) (*Cleaner, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	names := cfg.Rules
	if cfg.RemoveUnicode {
		names = append([]string{"remove_unicode"}, names...)
	}
	if c.pipeline, err = c.catalog.Resolve(names); err != nil {
		return nil, err
	}
	if cfg.NormalizeLegalTerms {
		if c.terms, err = c.dict.Resolve(cfg.Jurisdiction, cfg.Language, cfg.MergeLegalTerms); err != nil {
			return nil, err
		}
		if c.terms.Fallback {
			c.logger.Warn("unknown jurisdiction, using default legal forms",
				"jurisdiction", cfg.Jurisdiction, "default", c.terms.Jurisdiction)
		}
	}
	c.cfg = cfg
	return c, nil
}

// Config returns a copy of the configuration.
func (c *Cleaner) Config() Config {
	cfg := c.cfg
	cfg.Rules = append([]string(nil), cfg.Rules...)
	return cfg
}

// Result describes how a name was cleaned.
type Result struct {
	Input   string `json:"input"`
	Cleaned string `json:"cleaned"`
	// Jurisdiction is the dictionary used for legal forms, empty when
	// legal-form expansion is off.
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Fallback     bool   `json:"fallback,omitempty"`
	LegalForm    string `json:"legal_form,omitempty"`
}

// Clean cleans name under the configured jurisdiction.
func (c *Cleaner) Clean(name string) (string, error) {
	res, err := c.Inspect(name, "")
	return res.Cleaned, err
}

// CleanIn cleans name under jurisdiction. A blank jurisdiction means the
// configured one; an unknown one falls back to the default legal forms.
func (c *Cleaner) CleanIn(name, jurisdiction string) (string, error) {
	res, err := c.Inspect(name, jurisdiction)
	return res.Cleaned, err
}

// Inspect is CleanIn with the legal-form decision reported.
func (c *Cleaner) Inspect(name, jurisdiction string) (Result, error) {
	res := Result{Input: name}
	s, err := rules.Run(name, c.pipeline)
	if err != nil {
		return res, err
	}
	if c.cfg.NormalizeLegalTerms {
		ts, err := c.termsFor(jurisdiction)
		if err != nil {
			return res, err
		}
		n := legal.NewNormalizer(ts, c.cfg.MaxLegalSpan)
		if m, ok := n.Find(s); ok {
			res.LegalForm = m.Canonical
			s = n.Normalize(s)
		}
		res.Jurisdiction, res.Fallback = ts.Jurisdiction, ts.Fallback
	}
	res.Cleaned = rules.CollapseSpaces(c.cfg.Case.Apply(s))
	return res, nil
}

// termsFor picks the legal forms for a per-name jurisdiction. Only the
// configured jurisdiction is narrowed to the configured language; others
// use all their languages.
func (c *Cleaner) termsFor(jurisdiction string) (*legal.TermSet, error) {
	jur := strings.ToLower(strings.TrimSpace(jurisdiction))
	if jur == "" || jur == strings.ToLower(c.cfg.Jurisdiction) {
		return c.terms, nil
	}
	if !c.dict.Has(jur) && c.countries != nil {
		if rec, ok := c.countries.Search(jurisdiction); ok {
			jur = strings.ToLower(rec.Alpha2)
		}
	}
	if jur == strings.ToLower(c.cfg.Jurisdiction) {
		return c.terms, nil
	}
	ts, err := c.dict.Resolve(jur, "", c.cfg.MergeLegalTerms)
	if err != nil {
		return nil, err
	}
	if ts.Fallback {
		c.logger.Debug("unknown jurisdiction, using default legal forms", "jurisdiction", jurisdiction)
	}
	return ts, nil
}

const chunkSize = 256

// CleanColumn writes the cleaned value of column src into column dst of a
// copy of t, overwriting dst if it exists. When jurisdictionCol is not
// empty it names a column of per-row jurisdictions; blank cells use the
// configured one. Rows are cleaned in parallel and the first error
// cancels the rest.
func (c *Cleaner) CleanColumn(ctx context.Context, t *table.Table, src, dst, jurisdictionCol string) (*table.Table, error) {
	names, err := t.Column(src)
	if err != nil {
		return nil, fmt.Errorf("clean names: %w", err)
	}
	var jurisdictions []string
	if jurisdictionCol != "" {
		if jurisdictions, err = t.Column(jurisdictionCol); err != nil {
			return nil, fmt.Errorf("clean names: %w", err)
		}
	}

	out := make([]string, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(names); start += chunkSize {
		end := min(start+chunkSize, len(names))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				var jur string
				if jurisdictions != nil {
					jur = jurisdictions[i]
				}
				v, err := c.CleanIn(names[i], jur)
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				out[i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.logger.Debug("names cleaned", "column", src, "rows", len(names))
	return t.WithColumn(dst, out)
}
