// Package legal loads per-jurisdiction legal-form dictionaries and rewrites
// trailing legal-form abbreviations ("llc", "s.a.s.") into their canonical
// full terms.
package legal

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultJurisdiction = "us"
	DefaultLanguage     = "en"
	// DefaultMaxSpan bounds how many trailing tokens a legal form may cover.
	DefaultMaxSpan = 6

	fileSuffix = "_legal_forms.json"
)

//go:embed data/*_legal_forms.json
var bundled embed.FS

var aliases = map[string]string{
	"uk": "gb",
}

// Forms maps a canonical legal term to its abbreviation variants.
type Forms map[string][]string

// file is the on-disk layout: {"legal_forms": {language: {canonical: [variants]}}}.
type file struct {
	LegalForms map[string]Forms `json:"legal_forms"`
}

// Dictionary holds legal forms by jurisdiction and language, plus lazily
// built lookup indexes. It is safe for concurrent use.
type Dictionary struct {
	mu     sync.RWMutex
	forms  map[string]map[string]Forms
	sets   map[string]*index
	gen    uint64
	group  singleflight.Group
	builds atomic.Int64
	logger *slog.Logger
}

// New returns an empty dictionary.
func New(logger *slog.Logger) *Dictionary {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dictionary{
		forms:  make(map[string]map[string]Forms),
		sets:   make(map[string]*index),
		logger: logger,
	}
}

// Load returns a dictionary holding the bundled legal forms.
func Load(logger *slog.Logger) (*Dictionary, error) {
	d := New(logger)
	if err := d.LoadFS(bundled, "data"); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDir overlays every <jurisdiction>_legal_forms.json file found in dir.
// Languages present in a file replace the same languages already loaded
// for that jurisdiction.
func (d *Dictionary) LoadDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("legal forms dir %s: %w", dir, err)
	}
	return d.LoadFS(os.DirFS(dir), ".")
}

// LoadFS is LoadDir over an fs.FS.
func (d *Dictionary) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read legal forms dir %s: %w", dir, err)
	}

	loaded := make(map[string]map[string]Forms)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		jur := strings.TrimSuffix(entry.Name(), fileSuffix)
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		langs, err := parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		loaded[normalizeCode(jur)] = langs
	}

	d.mu.Lock()
	for jur, langs := range loaded {
		existing, ok := d.forms[jur]
		if !ok {
			existing = make(map[string]Forms)
			d.forms[jur] = existing
		}
		for lang, forms := range langs {
			existing[lang] = forms
		}
	}
	d.sets = make(map[string]*index)
	d.gen++
	d.mu.Unlock()

	d.logger.Debug("legal forms loaded", "dir", dir, "jurisdictions", len(loaded))
	return nil
}

// Add registers the forms of one jurisdiction and language, replacing any
// previous entry.
func (d *Dictionary) Add(jurisdiction, language string, forms Forms) {
	jur, lang := normalizeCode(jurisdiction), normalizeCode(language)
	d.mu.Lock()
	if d.forms[jur] == nil {
		d.forms[jur] = make(map[string]Forms)
	}
	d.forms[jur][lang] = forms
	d.sets = make(map[string]*index)
	d.gen++
	d.mu.Unlock()
}

func parse(data []byte) (map[string]Forms, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse legal forms: %w", err)
	}
	if f.LegalForms == nil {
		return nil, fmt.Errorf("missing legal_forms key")
	}
	out := make(map[string]Forms, len(f.LegalForms))
	for lang, forms := range f.LegalForms {
		out[normalizeCode(lang)] = forms
	}
	return out, nil
}

// FileName returns the file name LoadDir expects for a jurisdiction.
func FileName(jurisdiction string) string {
	return normalizeCode(jurisdiction) + fileSuffix
}

// Encode renders forms by language in the layout LoadDir reads.
func Encode(langs map[string]Forms) ([]byte, error) {
	data, err := json.MarshalIndent(file{LegalForms: langs}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode legal forms: %w", err)
	}
	return append(data, '\n'), nil
}

func normalizeCode(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if a, ok := aliases[c]; ok {
		return a
	}
	return c
}

// TermSet is the lookup index selected for one (jurisdiction, language)
// request, with a record of how the request was resolved.
type TermSet struct {
	Requested    string `json:"requested"`
	Jurisdiction string `json:"jurisdiction"`
	// Language is empty when every language of the jurisdiction is used.
	Language string `json:"language,omitempty"`
	Merged   bool   `json:"merged"`
	// Fallback is set when the requested jurisdiction is unknown and the
	// default dictionary was used instead.
	Fallback bool `json:"fallback"`

	idx *index
}

// Len returns the number of distinct variants in the set.
func (ts *TermSet) Len() int { return ts.idx.variants }

// Lookup returns the canonical term for a whole variant such as "s.a.s.".
func (ts *TermSet) Lookup(variant string) (string, bool) {
	tokens := strings.Fields(variant)
	span, canonical := ts.idx.longestSuffix(tokens, len(tokens))
	if span != len(tokens) || span == 0 {
		return "", false
	}
	return canonical, true
}

// Resolve selects the index for a jurisdiction and language. An unknown
// jurisdiction resolves to the default us/en dictionary with Fallback set.
// An unknown or empty language selects every language of the jurisdiction.
// With merge, default-dictionary variants the jurisdiction does not define
// itself are added. Indexes are built on first use and cached.
func (d *Dictionary) Resolve(jurisdiction, language string, merge bool) (*TermSet, error) {
	ts := &TermSet{Requested: jurisdiction}
	jur, lang := normalizeCode(jurisdiction), normalizeCode(language)

	d.mu.RLock()
	langs, known := d.forms[jur]
	d.mu.RUnlock()

	switch {
	case jur == "":
		jur, lang = DefaultJurisdiction, DefaultLanguage
	case !known:
		jur, lang = DefaultJurisdiction, DefaultLanguage
		ts.Fallback = true
	case lang != "":
		if _, ok := langs[lang]; !ok {
			lang = ""
		}
	}
	if jur == DefaultJurisdiction {
		merge = false
	}
	ts.Jurisdiction, ts.Language, ts.Merged = jur, lang, merge

	idx, err := d.index(jur, lang, merge)
	if err != nil {
		return nil, err
	}
	ts.idx = idx
	return ts, nil
}

func (d *Dictionary) index(jur, lang string, merge bool) (*index, error) {
	key := jur + "|" + lang + "|" + strconv.FormatBool(merge)

	d.mu.RLock()
	idx, ok := d.sets[key]
	gen := d.gen
	d.mu.RUnlock()
	if ok {
		return idx, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		d.mu.RLock()
		idx, ok := d.sets[key]
		d.mu.RUnlock()
		if ok {
			return idx, nil
		}

		idx, err := d.build(jur, lang, merge)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		if d.gen == gen {
			d.sets[key] = idx
		}
		d.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index), nil
}

func (d *Dictionary) build(jur, lang string, merge bool) (*index, error) {
	d.builds.Add(1)

	d.mu.RLock()
	langs := d.forms[jur]
	defaults := d.forms[DefaultJurisdiction][DefaultLanguage]
	d.mu.RUnlock()

	idx := newIndex()
	var own []Forms
	for _, l := range sortedKeys(langs) {
		if lang != "" && l != lang {
			continue
		}
		forms := langs[l]
		own = append(own, forms)
		for _, canonical := range sortedKeys(forms) {
			for _, variant := range forms[canonical] {
				if err := idx.insert(variant, canonical); err != nil {
					err.Jurisdiction = jur
					return nil, err
				}
			}
		}
	}

	if merge {
		for _, canonical := range sortedKeys(defaults) {
			for _, variant := range defaults[canonical] {
				idx.insertIfAbsent(variant, canonical)
			}
		}
		own = append(own, defaults)
	}

	// "S. A." and "S A" match "s.a.": split forms go in last so listed
	// variants keep their keys.
	for _, forms := range own {
		for _, canonical := range sortedKeys(forms) {
			for _, variant := range forms[canonical] {
				idx.insertSpaced(variant, canonical)
			}
		}
	}

	d.logger.Debug("legal index built", "jurisdiction", jur, "language", lang, "merged", merge, "variants", idx.variants)
	return idx, nil
}

// Has reports whether the jurisdiction has its own dictionary.
func (d *Dictionary) Has(jurisdiction string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.forms[normalizeCode(jurisdiction)]
	return ok
}

// Forms returns a copy of the forms of a jurisdiction. An empty language
// merges all of its languages.
func (d *Dictionary) Forms(jurisdiction, language string) (Forms, bool) {
	jur, lang := normalizeCode(jurisdiction), normalizeCode(language)
	d.mu.RLock()
	defer d.mu.RUnlock()

	langs, ok := d.forms[jur]
	if !ok {
		return nil, false
	}
	out := make(Forms)
	for l, forms := range langs {
		if lang != "" && l != lang {
			continue
		}
		for canonical, variants := range forms {
			out[canonical] = append(out[canonical], variants...)
		}
	}
	if lang != "" && len(out) == 0 {
		return nil, false
	}
	return out, true
}

// Info describes one loaded jurisdiction.
type Info struct {
	Jurisdiction string   `json:"jurisdiction"`
	Languages    []string `json:"languages"`
	Terms        int      `json:"terms"`
	Variants     int      `json:"variants"`
}

// List returns every loaded jurisdiction sorted by code.
func (d *Dictionary) List() []Info {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]Info, 0, len(d.forms))
	for jur, langs := range d.forms {
		info := Info{Jurisdiction: jur, Languages: sortedKeys(langs)}
		for _, forms := range langs {
			info.Terms += len(forms)
			for _, variants := range forms {
				info.Variants += len(variants)
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Jurisdiction < infos[j].Jurisdiction })
	return infos
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
