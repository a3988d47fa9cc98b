package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hazyhaar/entity-cleaner/pkg/legal"
)

func init() {
	Register(&gleifELFAdapter{})
}

// gleifELFAdapter imports the ISO 20275 Entity Legal Forms code list
// published by GLEIF. Each active form contributes its local name as the
// canonical term and its local and transliterated abbreviations as variants.
type gleifELFAdapter struct{}

func (a *gleifELFAdapter) ID() string      { return "gleif-elf" }
func (a *gleifELFAdapter) Dataset() string { return "legal-forms" }
func (a *gleifELFAdapter) Description() string {
	return "GLEIF ISO 20275 Entity Legal Forms code list"
}
func (a *gleifELFAdapter) DefaultURL() string {
	return "https://www.gleif.org/lei-data/code-lists/iso-20275-entity-legal-forms-code-list/2023-09-28-elf-code-list-v1.5.csv"
}
func (a *gleifELFAdapter) License() string { return "CC0 1.0" }

func (a *gleifELFAdapter) Import(ctx context.Context, sourceURL, outputDir string) (Stats, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Stats{}, err
	}
	dlDir, err := os.MkdirTemp(outputDir, "_download")
	if err != nil {
		return Stats{}, err
	}
	defer os.RemoveAll(dlDir)

	dest := filepath.Join(dlDir, "elf"+sourceExt(sourceURL))
	if err := downloadFile(ctx, sourceURL, dest); err != nil {
		return Stats{}, err
	}
	csvPath, err := locateCSV(dest, dlDir)
	if err != nil {
		return Stats{}, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	byJurisdiction, stats, err := parseELF(f)
	if err != nil {
		return Stats{}, fmt.Errorf("parse %s: %w", filepath.Base(csvPath), err)
	}

	for _, jur := range sortedJurisdictions(byJurisdiction) {
		data, err := legal.Encode(byJurisdiction[jur])
		if err != nil {
			return Stats{}, fmt.Errorf("%s: %w", jur, err)
		}
		if err := os.WriteFile(filepath.Join(outputDir, legal.FileName(jur)), data, 0o644); err != nil {
			return Stats{}, err
		}
	}

	return stats, writeManifest(outputDir, &Manifest{
		Source:     a.ID(),
		Dataset:    a.Dataset(),
		SourceURL:  sourceURL,
		License:    a.License(),
		ImportedAt: time.Now().UTC().Truncate(time.Second),
		Stats:      stats,
	})
}

// sourceExt returns the extension of the URL path, ignoring any query.
func sourceExt(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ".csv"
	}
	return strings.ToLower(path.Ext(u.Path))
}

// locateCSV returns file itself, or the first CSV inside it when the
// register was published as a ZIP archive.
func locateCSV(file, dir string) (string, error) {
	if !strings.EqualFold(filepath.Ext(file), ".zip") {
		return file, nil
	}
	files, err := unzipFile(file, dir)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".csv") {
			return f, nil
		}
	}
	return "", errors.New("no CSV file in archive")
}

// elfColumns maps the fields we read to the lower-cased prefix of their
// header. GLEIF revises the exact header text between list versions.
var elfColumns = map[string]string{
	"country":  "country code",
	"language": "language code",
	"local":    "entity legal form name local name",
	"abbrev":   "abbreviations local language",
	"translit": "abbreviations transliterated",
	"status":   "elf status",
}

var requiredELFColumns = []string{"country", "language", "local", "abbrev", "status"}

func locateColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(elfColumns))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, prefix := range elfColumns {
			if _, seen := cols[field]; !seen && strings.HasPrefix(h, prefix) {
				cols[field] = i
			}
		}
	}
	for _, field := range requiredELFColumns {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("missing column %q", elfColumns[field])
		}
	}
	return cols, nil
}

type elfEntry struct {
	jurisdiction, language, canonical, variant string
}

// parseELF groups the active forms of the register by jurisdiction and
// language. A variant naming two different forms within one jurisdiction
// is dropped everywhere in that jurisdiction, since the dictionary refuses
// to index it.
func parseELF(r io.Reader) (map[string]map[string]legal.Forms, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, Stats{}, err
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		stats   Stats
		entries []elfEntry
		owners  = make(map[string]map[string]string) // jurisdiction -> variant key -> canonical
		clashes = make(map[string]map[string]bool)
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Stats{}, fmt.Errorf("line %d: %w", line, err)
		}
		if !strings.EqualFold(field(rec, "status"), "ACTV") {
			stats.Inactive++
			continue
		}
		jur := strings.ToLower(field(rec, "country"))
		lang := strings.ToLower(field(rec, "language"))
		canonical := strings.Join(strings.Fields(strings.ToLower(field(rec, "local"))), " ")
		if len(jur) != 2 || lang == "" || canonical == "" {
			continue
		}

		for _, v := range splitAbbreviations(field(rec, "abbrev"), field(rec, "translit")) {
			key := legal.VariantKey(v)
			if key == "" {
				continue
			}
			if owners[jur] == nil {
				owners[jur] = make(map[string]string)
			}
			if prev, ok := owners[jur][key]; ok && prev != canonical {
				if clashes[jur] == nil {
					clashes[jur] = make(map[string]bool)
				}
				clashes[jur][key] = true
			} else if !ok {
				owners[jur][key] = canonical
			}
			entries = append(entries, elfEntry{jur, lang, canonical, v})
		}
	}

	out := make(map[string]map[string]legal.Forms)
	for _, e := range entries {
		if clashes[e.jurisdiction][legal.VariantKey(e.variant)] {
			continue
		}
		langs := out[e.jurisdiction]
		if langs == nil {
			langs = make(map[string]legal.Forms)
			out[e.jurisdiction] = langs
		}
		forms := langs[e.language]
		if forms == nil {
			forms = make(legal.Forms)
			langs[e.language] = forms
		}
		if _, ok := forms[e.canonical]; !ok {
			stats.Forms++
		}
		if !slices.Contains(forms[e.canonical], e.variant) {
			forms[e.canonical] = append(forms[e.canonical], e.variant)
			stats.Variants++
		}
	}
	for _, keys := range clashes {
		stats.Ambiguous += len(keys)
	}
	for _, langs := range out {
		for _, forms := range langs {
			for canonical := range forms {
				slices.Sort(forms[canonical])
			}
		}
	}
	stats.Jurisdictions = len(out)
	return out, stats, nil
}

// splitAbbreviations lower-cases and de-duplicates the ";"-separated
// abbreviation lists of one register row.
func splitAbbreviations(lists ...string) []string {
	var out []string
	for _, list := range lists {
		for _, v := range strings.Split(list, ";") {
			v = strings.Join(strings.Fields(strings.ToLower(v)), " ")
			if v != "" && !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

func sortedJurisdictions(m map[string]map[string]legal.Forms) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
