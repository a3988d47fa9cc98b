// Package country resolves free-text country references (ISO codes,
// official names, common aliases, misspellings) to ISO 3166-1 records.
package country

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	"github.com/hbollon/go-edlib"

	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

//go:embed data/countries.csv
var embeddedCSV []byte

// DefaultThreshold is the minimum Jaro-Winkler similarity accepted by the
// fuzzy name search.
const DefaultThreshold float32 = 0.88

// Country is one ISO 3166-1 entry.
type Country struct {
	Name    string `csv:"name" json:"name"`
	Alpha2  string `csv:"alpha2" json:"alpha2"`
	Alpha3  string `csv:"alpha3" json:"alpha3"`
	Numeric string `csv:"numeric" json:"numeric"`
	Aliases string `csv:"aliases" json:"-"`
}

type nameEntry struct {
	folded string
	idx    int
}

// Registry is an immutable, concurrency-safe country index.
type Registry struct {
	countries []Country
	byAlpha2  map[string]int
	byAlpha3  map[string]int
	byNumeric map[string]int
	byName    map[string]int
	names     []nameEntry
	fold      []*rules.Rule
	threshold float32
}

// Load builds a registry from the embedded ISO 3166-1 table.
func Load() (*Registry, error) {
	var countries []Country
	if err := gocsv.Unmarshal(bytes.NewReader(embeddedCSV), &countries); err != nil {
		return nil, fmt.Errorf("parse embedded countries: %w", err)
	}
	return NewRegistry(countries, DefaultThreshold)
}

// NewRegistry indexes countries. threshold <= 0 means DefaultThreshold.
func NewRegistry(countries []Country, threshold float32) (*Registry, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	fold, err := rules.Default().Resolve([]string{
		"transliterate_to_ascii",
		"remove_all_punctuation",
		"enforce_single_space_between_words",
	})
	if err != nil {
		return nil, err
	}
	r := &Registry{
		countries: countries,
		byAlpha2:  make(map[string]int, len(countries)),
		byAlpha3:  make(map[string]int, len(countries)),
		byNumeric: make(map[string]int, len(countries)),
		byName:    make(map[string]int, 2*len(countries)),
		fold:      fold,
		threshold: threshold,
	}
	for i, c := range countries {
		if len(c.Alpha2) != 2 || len(c.Alpha3) != 3 {
			return nil, fmt.Errorf("country %q: bad codes %q/%q", c.Name, c.Alpha2, c.Alpha3)
		}
		r.byAlpha2[strings.ToUpper(c.Alpha2)] = i
		r.byAlpha3[strings.ToUpper(c.Alpha3)] = i
		if c.Numeric != "" {
			r.byNumeric[c.Numeric] = i
		}
		names := []string{c.Name}
		if c.Aliases != "" {
			names = append(names, strings.Split(c.Aliases, "|")...)
		}
		for _, n := range names {
			f := r.foldName(n)
			if f == "" {
				continue
			}
			if _, dup := r.byName[f]; !dup {
				r.byName[f] = i
				r.names = append(r.names, nameEntry{folded: f, idx: i})
			}
		}
	}
	return r, nil
}

func (r *Registry) foldName(s string) string {
	out, err := rules.Run(s, r.fold)
	if err != nil {
		return ""
	}
	return strings.ToLower(out)
}

// Len returns the number of countries.
func (r *Registry) Len() int { return len(r.countries) }

// All returns a copy of every country.
func (r *Registry) All() []Country {
	out := make([]Country, len(r.countries))
	copy(out, r.countries)
	return out
}

// Search resolves value: two letters as alpha-2, three letters as alpha-3,
// digits as the numeric code, then exact name or alias, then the closest
// name above the fuzzy threshold. Values shorter than two characters never
// match.
func (r *Registry) Search(value string) (Country, bool) {
	v := strings.TrimSpace(value)
	if utf8.RuneCountInString(v) < 2 {
		return Country{}, false
	}
	code := strings.ToUpper(v)

	switch {
	case isDigits(v):
		if len(v) < 3 {
			v = strings.Repeat("0", 3-len(v)) + v
		}
		if i, ok := r.byNumeric[v]; ok {
			return r.countries[i], true
		}
		return Country{}, false
	case len(v) == 2:
		if i, ok := r.byAlpha2[code]; ok {
			return r.countries[i], true
		}
	case len(v) == 3:
		if i, ok := r.byAlpha3[code]; ok {
			return r.countries[i], true
		}
	}

	folded := r.foldName(v)
	if folded == "" {
		return Country{}, false
	}
	if i, ok := r.byName[folded]; ok {
		return r.countries[i], true
	}
	if len(folded) < 4 {
		return Country{}, false
	}

	best, bestIdx := float32(0), -1
	for _, n := range r.names {
		if s := edlib.JaroWinklerSimilarity(folded, n.folded); s > best {
			best, bestIdx = s, n.idx
		}
	}
	if bestIdx < 0 || best < r.threshold {
		return Country{}, false
	}
	return r.countries[bestIdx], true
}

func isDigits(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) || c > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}
