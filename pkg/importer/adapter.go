// Package importer refreshes legal-form dictionaries from public registers.
// Each source is an Adapter; the files it writes are read back by
// legal.Dictionary.LoadDir.
package importer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Adapter downloads one register and writes <cc>_legal_forms.json files.
type Adapter interface {
	// ID names the source, e.g. "gleif-elf".
	ID() string
	// Dataset names what the source produces, e.g. "legal-forms".
	Dataset() string
	Description() string
	// DefaultURL seeds the sources table; operators may override it there.
	DefaultURL() string
	License() string
	// Import fetches sourceURL and writes one file per jurisdiction into
	// outputDir, plus a manifest.yaml describing the run.
	Import(ctx context.Context, sourceURL, outputDir string) (Stats, error)
}

// Stats summarizes an import run.
type Stats struct {
	Jurisdictions int `yaml:"jurisdictions"`
	Forms         int `yaml:"forms"`
	Variants      int `yaml:"variants"`
	// Inactive counts register rows skipped because the form is retired.
	Inactive int `yaml:"inactive"`
	// Ambiguous counts variants dropped because they name two forms of
	// the same jurisdiction.
	Ambiguous int `yaml:"ambiguous"`
}

var (
	mu       sync.RWMutex
	registry = map[string]Adapter{}
)

// Register makes an adapter available to Get and All. A second adapter
// with the same ID replaces the first.
func Register(a Adapter) {
	mu.Lock()
	registry[a.ID()] = a
	mu.Unlock()
}

// Get returns the adapter registered under id.
func Get(id string) (Adapter, error) {
	mu.RLock()
	a, ok := registry[strings.TrimSpace(id)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown import source %q (known: %s)", id, strings.Join(IDs(), ", "))
	}
	return a, nil
}

// All returns every registered adapter ordered by ID.
func All() []Adapter {
	mu.RLock()
	out := make([]Adapter, 0, len(registry))
	for _, a := range registry {
		out = append(out, a)
	}
	mu.RUnlock()
	slices.SortFunc(out, func(a, b Adapter) int { return strings.Compare(a.ID(), b.ID()) })
	return out
}

// IDs returns the registered adapter IDs in order.
func IDs() []string {
	all := All()
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.ID()
	}
	return ids
}
