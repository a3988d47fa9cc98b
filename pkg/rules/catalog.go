package rules

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog maps rule names to rules. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{rules: make(map[string]*Rule)}
}

// Default returns a new catalog holding every built-in rule. Callers may
// register extra rules on it without affecting other catalogs.
func Default() *Catalog {
	c := NewCatalog()
	for _, r := range builtin() {
		c.rules[r.name] = r
	}
	return c
}

// Register adds r, replacing any rule with the same name.
func (c *Catalog) Register(r *Rule) {
	c.mu.Lock()
	c.rules[r.name] = r
	c.mu.Unlock()
}

// RegisterSpecs compiles and registers regex rules. Nothing is registered
// if any spec fails to compile.
func (c *Catalog) RegisterSpecs(specs []Spec) error {
	compiled := make([]*Rule, 0, len(specs))
	for _, s := range specs {
		r, err := s.Compile()
		if err != nil {
			return err
		}
		compiled = append(compiled, r)
	}
	c.mu.Lock()
	for _, r := range compiled {
		c.rules[r.name] = r
	}
	c.mu.Unlock()
	return nil
}

// LoadFile registers the regex rules declared in a YAML file with the same
// layout as the built-in rules.yaml.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file %s: %w", path, err)
	}
	specs, err := ParseSpecs(data)
	if err != nil {
		return fmt.Errorf("rules file %s: %w", path, err)
	}
	return c.RegisterSpecs(specs)
}

// ParseSpecs decodes a YAML (or JSON) rule document.
func ParseSpecs(data []byte) ([]Spec, error) {
	var doc struct {
		Rules []Spec `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return doc.Rules, nil
}

// lookup finds name, then the rule a legacy name stands for. Callers
// hold c.mu.
func (c *Catalog) lookup(name string) (*Rule, bool) {
	if r, ok := c.rules[name]; ok {
		return r, true
	}
	if target, ok := legacyNames[name]; ok {
		r, ok := c.rules[target]
		return r, ok
	}
	return nil, false
}

// Get returns the rule registered under name. Legacy names resolve to
// the rule that replaced them.
func (c *Catalog) Get(name string) (*Rule, error) {
	c.mu.RLock()
	r, ok := c.lookup(name)
	c.mu.RUnlock()
	if !ok {
		return nil, &UnknownRuleError{Name: name}
	}
	return r, nil
}

// Resolve looks up every name, failing on the first unknown one.
func (c *Catalog) Resolve(names []string) ([]*Rule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Rule, len(names))
	for i, n := range names {
		r, ok := c.lookup(n)
		if !ok {
			return nil, &UnknownRuleError{Name: n}
		}
		out[i] = r
	}
	return out, nil
}

// Apply runs the named rules over text, left to right. All names are
// resolved before any rule runs, so an unknown name never yields a
// partially cleaned result.
func (c *Catalog) Apply(text string, names []string) (string, error) {
	pipeline, err := c.Resolve(names)
	if err != nil {
		return "", err
	}
	return Run(text, pipeline)
}

// Run applies already resolved rules in order.
func Run(text string, pipeline []*Rule) (string, error) {
	var err error
	for _, r := range pipeline {
		if text, err = r.Apply(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

// Info is the public description of a rule.
type Info struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Default     bool   `json:"default"`
	// Aliases are legacy names accepted for the rule.
	Aliases []string `json:"aliases,omitempty"`
}

// List returns every registered rule sorted by name.
func (c *Catalog) List() []Info {
	inDefault := make(map[string]bool, len(defaultPipeline))
	for _, n := range defaultPipeline {
		inDefault[n] = true
	}
	aliases := make(map[string][]string)
	for legacy, target := range legacyNames {
		aliases[target] = append(aliases[target], legacy)
	}

	c.mu.RLock()
	infos := make([]Info, 0, len(c.rules))
	for name, r := range c.rules {
		info := Info{
			Name:        r.name,
			Kind:        r.kind,
			Description: r.description,
			Pattern:     r.pattern,
			Default:     inDefault[r.name],
		}
		for _, a := range aliases[name] {
			if _, shadowed := c.rules[a]; !shadowed {
				info.Aliases = append(info.Aliases, a)
			}
		}
		sort.Strings(info.Aliases)
		infos = append(infos, info)
	}
	c.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of registered rules.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}
