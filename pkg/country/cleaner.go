package country

import (
	"context"
	"fmt"

	"github.com/hazyhaar/entity-cleaner/pkg/rules"
	"github.com/hazyhaar/entity-cleaner/pkg/table"
)

// Suffixes name the columns CleanColumn appends to the input column name.
type Suffixes struct {
	Name   string
	Alpha2 string
	Alpha3 string
}

// DefaultSuffixes yields country_name, country_alpha2 and country_alpha3
// for a "country" column.
var DefaultSuffixes = Suffixes{Name: "_name", Alpha2: "_alpha2", Alpha3: "_alpha3"}

// Result is a cleaned country reference.
type Result struct {
	Name   string `json:"name"`
	Alpha2 string `json:"alpha2"`
	Alpha3 string `json:"alpha3"`
}

// Cleaner renders registry matches in a letter case.
type Cleaner struct {
	reg      *Registry
	letter   rules.Case
	suffixes Suffixes
}

// NewCleaner returns a cleaner. Zero suffix fields take DefaultSuffixes.
func NewCleaner(reg *Registry, letter rules.Case, suffixes Suffixes) *Cleaner {
	if suffixes.Name == "" {
		suffixes.Name = DefaultSuffixes.Name
	}
	if suffixes.Alpha2 == "" {
		suffixes.Alpha2 = DefaultSuffixes.Alpha2
	}
	if suffixes.Alpha3 == "" {
		suffixes.Alpha3 = DefaultSuffixes.Alpha3
	}
	return &Cleaner{reg: reg, letter: letter, suffixes: suffixes}
}

// Suffixes returns the output column suffixes in use.
func (c *Cleaner) Suffixes() Suffixes { return c.suffixes }

// Clean resolves value. The second result is false when nothing matched.
func (c *Cleaner) Clean(value string) (Result, bool) {
	m, ok := c.reg.Search(value)
	if !ok {
		return Result{}, false
	}
	return Result{
		Name:   c.letter.Apply(m.Name),
		Alpha2: c.letter.Apply(m.Alpha2),
		Alpha3: c.letter.Apply(m.Alpha3),
	}, true
}

// CleanColumn appends <col><suffix> columns holding the cleaned name and
// codes. Unmatched or blank cells produce empty output cells.
func (c *Cleaner) CleanColumn(ctx context.Context, t *table.Table, col string) (*table.Table, error) {
	values, err := t.Column(col)
	if err != nil {
		return nil, fmt.Errorf("clean country: %w", err)
	}

	memo := make(map[string]Result)
	names := make([]string, len(values))
	alpha2 := make([]string, len(values))
	alpha3 := make([]string, len(values))
	for i, v := range values {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		res, seen := memo[v]
		if !seen {
			res, _ = c.Clean(v)
			memo[v] = res
		}
		names[i], alpha2[i], alpha3[i] = res.Name, res.Alpha2, res.Alpha3
	}

	out := t
	for _, column := range []struct {
		name   string
		values []string
	}{
		{col + c.suffixes.Name, names},
		{col + c.suffixes.Alpha2, alpha2},
		{col + c.suffixes.Alpha3, alpha3},
	} {
		if out, err = out.WithColumn(column.name, column.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}
