package rules

import (
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

// nameLike draws short strings mixing letters, digits, the punctuation
// the rules target and a few non-ASCII letters.
func nameLike() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-zA-Z0-9 &\-_.,;:()\[\]{}*'"@#/+%<>=!?éÉßü]{0,40}`)
}

// TestPropertyRulesIdempotent verifies applying any built-in rule twice
// gives the same result as applying it once.
func TestPropertyRulesIdempotent(t *testing.T) {
	c := Default()
	for _, info := range c.List() {
		r, _ := c.Get(info.Name)
		t.Run(info.Name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				in := nameLike().Draw(t, "in")
				once, err := r.Apply(in)
				if err != nil {
					t.Fatalf("Apply(%q): %v", in, err)
				}
				twice, err := r.Apply(once)
				if err != nil {
					t.Fatalf("Apply(%q): %v", once, err)
				}
				if once != twice {
					t.Fatalf("not idempotent on %q: first=%q, second=%q", in, once, twice)
				}
			})
		})
	}
}

// TestPropertyPipelineDeterministic verifies the same pipeline on the same
// input always yields the same output.
func TestPropertyPipelineDeterministic(t *testing.T) {
	c := Default()
	names := make([]string, 0, c.Len())
	for _, info := range c.List() {
		names = append(names, info.Name)
	}
	rapid.Check(t, func(t *rapid.T) {
		in := nameLike().Draw(t, "in")
		pipeline := rapid.SliceOfN(rapid.SampledFrom(names), 0, 8).Draw(t, "pipeline")

		a, errA := c.Apply(in, pipeline)
		b, errB := c.Apply(in, pipeline)
		if a != b || (errA == nil) != (errB == nil) {
			t.Fatalf("non-deterministic for %q with %v: %q vs %q", in, pipeline, a, b)
		}
		if errA == nil && !utf8.ValidString(a) {
			t.Fatalf("invalid utf-8 output %q", a)
		}
	})
}
