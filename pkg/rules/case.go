package rules

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Case is an output letter case.
type Case string

const (
	CaseLower Case = "lower"
	CaseUpper Case = "upper"
	CaseTitle Case = "title"
	CaseAsIs  Case = "asis"
)

// ParseCase accepts lower, upper, title and asis. Empty means lower.
func ParseCase(s string) (Case, error) {
	switch c := Case(s); c {
	case "":
		return CaseLower, nil
	case CaseLower, CaseUpper, CaseTitle, CaseAsIs:
		return c, nil
	}
	return "", fmt.Errorf("unknown letter case %q (want lower, upper, title or asis)", s)
}

// Apply renders s in the case. Casers are not safe for concurrent use, so
// one is built per call.
func (c Case) Apply(s string) string {
	switch c {
	case CaseLower, "":
		return cases.Lower(language.Und).String(s)
	case CaseUpper:
		return cases.Upper(language.Und).String(s)
	case CaseTitle:
		return cases.Title(language.Und).String(s)
	default:
		return s
	}
}
