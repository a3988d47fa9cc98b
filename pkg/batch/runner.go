package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/hazyhaar/entity-cleaner/pkg/bankid"
	"github.com/hazyhaar/entity-cleaner/pkg/country"
	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
	"github.com/hazyhaar/entity-cleaner/pkg/table"
)

// Runner executes batch jobs against a filesystem.
type Runner struct {
	fs        afero.Fs
	countries *country.Registry
	names     *namecleaner.Cleaner
	logger    *slog.Logger
}

// NewRunner returns a runner. names provides the catalog and dictionary
// shared by every job; each job derives its own configuration from it.
func NewRunner(fs afero.Fs, countries *country.Registry, names *namecleaner.Cleaner, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{fs: fs, countries: countries, names: names, logger: logger}
}

// Clean runs every configured step over t and returns the cleaned copy.
func (r *Runner) Clean(ctx context.Context, t *table.Table, s *Settings) (*table.Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var err error
	if len(s.Attributes) > 0 {
		if t, err = r.selectAttributes(t, s.Attributes); err != nil {
			return nil, err
		}
	}
	if s.Country != nil {
		if t, err = r.cleanCountries(ctx, t, s.Country); err != nil {
			return nil, err
		}
	}
	if s.ID != nil {
		if t, err = r.cleanIDs(ctx, t, s.ID); err != nil {
			return nil, err
		}
	}
	if s.Name != nil {
		if t, err = r.cleanNames(ctx, t, s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *Runner) selectAttributes(t *table.Table, attrs Pairs) (*table.Table, error) {
	cols := make([]string, len(attrs))
	names := make(map[string]string, len(attrs))
	for i, a := range attrs {
		cols[i] = a.Key
		names[a.Key] = a.Value
	}
	t, err := t.Select(cols...)
	if err != nil {
		return nil, fmt.Errorf("select attributes: %w", err)
	}
	return t.Rename(names)
}

func (r *Runner) cleanCountries(ctx context.Context, t *table.Table, s *CountrySettings) (*table.Table, error) {
	letter, err := rules.ParseCase(s.Case)
	if err != nil {
		return nil, err
	}
	c := country.NewCleaner(r.countries, letter, country.Suffixes{
		Name:   "_" + s.NameSuffix,
		Alpha2: "_" + s.Alpha2Suffix,
		Alpha3: "_" + s.Alpha3Suffix,
	})
	for _, col := range s.InputCountries {
		r.logger.Debug("cleaning countries", "column", col)
		if t, err = c.CleanColumn(ctx, t, col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *Runner) cleanIDs(ctx context.Context, t *table.Table, s *IDSettings) (*table.Table, error) {
	letter := rules.CaseUpper
	if s.Case != "" {
		letter = rules.Case(s.Case)
	}
	for _, p := range s.InputIDs {
		kind, err := bankid.ParseType(p.Value)
		if err != nil {
			return nil, err
		}
		c, err := bankid.NewCleaner(kind,
			bankid.WithCase(letter),
			bankid.WithInvalidAsEmpty(bool(s.InvalidAsEmpty)),
			bankid.WithSuffixes(bankid.Suffixes{Cleaned: "_" + s.CleanSuffix, Valid: "_" + s.ValidSuffix}),
		)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("cleaning identifiers", "column", p.Key, "type", kind)
		if t, err = c.CleanColumn(ctx, t, p.Key); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *Runner) cleanNames(ctx context.Context, t *table.Table, s *Settings) (*table.Table, error) {
	ns := s.Name
	cfg := namecleaner.DefaultConfig()
	if ns.Rules != nil {
		cfg = cfg.WithRules(ns.Rules...)
	}
	if ns.Jurisdiction != "" {
		cfg.Jurisdiction, cfg.Language = ns.Jurisdiction, ns.Language
	}
	cfg.NormalizeLegalTerms = bool(ns.NormalizeLegalTerms)
	cfg.MergeLegalTerms = bool(ns.MergeLegalTerms)
	cfg.RemoveUnicode = bool(ns.RemoveUnicode)
	cfg.Case = rules.Case(ns.Case)

	c, err := r.names.With(cfg)
	if err != nil {
		return nil, fmt.Errorf("name cleaner: %w", err)
	}
	var jurisdictionCol string
	if ns.UseCleanCountry {
		jurisdictionCol = ns.InputCountry + "_" + s.Country.Alpha2Suffix
	}
	r.logger.Debug("cleaning names", "column", ns.InputName, "jurisdictions", jurisdictionCol)
	return c.CleanColumn(ctx, t, ns.InputName, ns.OutputName, jurisdictionCol)
}

// CleanFile reads in, cleans it and writes out. The format of each file
// follows its extension: .csv or .xlsx.
func (r *Runner) CleanFile(ctx context.Context, s *Settings, in, out string) error {
	start := time.Now()
	t, err := r.read(in, s.FileProcessing)
	if err != nil {
		return err
	}
	r.logger.Info("batch input read", "file", in, "rows", t.Len(), "columns", len(t.Columns))

	cleaned, err := r.Clean(ctx, t, s)
	if err != nil {
		return fmt.Errorf("clean %s: %w", in, err)
	}
	if err := r.write(out, cleaned, s.FileProcessing); err != nil {
		return err
	}
	r.logger.Info("batch output written", "file", out, "rows", cleaned.Len(),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".xlsx":
		return ext, nil
	default:
		return "", fmt.Errorf("%s: unsupported file type %q (want .csv or .xlsx)", path, ext)
	}
}

func (r *Runner) read(path string, opts table.CSVOptions) (*table.Table, error) {
	ext, err := format(path)
	if err != nil {
		return nil, err
	}
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var t *table.Table
	if ext == ".xlsx" {
		t, err = table.ReadXLSX(f, "")
	} else {
		t, err = table.ReadCSV(f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func (r *Runner) write(path string, t *table.Table, opts table.CSVOptions) (err error) {
	ext, err := format(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	if ext == ".xlsx" {
		err = table.WriteXLSX(f, t, "")
	} else {
		err = table.WriteCSV(f, t, opts)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
