// Package bankid cleans and checksum-validates financial identifiers:
// LEI (ISO 17442), ISIN (ISO 6166) and SEDOL.
package bankid

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

// Type is an identifier scheme.
type Type string

const (
	LEI   Type = "lei"
	ISIN  Type = "isin"
	SEDOL Type = "sedol"
)

// ErrUnsupportedType is returned for identifier schemes other than lei, isin and sedol.
var ErrUnsupportedType = errors.New("unsupported identifier type")

// Types lists the supported schemes.
func Types() []Type { return []Type{LEI, ISIN, SEDOL} }

// ParseType accepts a scheme name in any case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case LEI, ISIN, SEDOL:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

var cleanPipeline = sync.OnceValues(func() ([]*rules.Rule, error) {
	return rules.Default().Resolve([]string{"remove_unicode", "remove_spaces"})
})

// Normalize drops non-ASCII characters and whitespace and upper-cases the rest.
func Normalize(raw string) (string, error) {
	pipeline, err := cleanPipeline()
	if err != nil {
		return "", err
	}
	s, err := rules.Run(raw, pipeline)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// Validate normalizes raw and checks it against the scheme.
func Validate(kind Type, raw string) (cleaned string, valid bool, err error) {
	cleaned, err = Normalize(raw)
	if err != nil {
		return "", false, err
	}
	switch kind {
	case LEI:
		valid = validLEI(cleaned)
	case ISIN:
		valid = validISIN(cleaned)
	case SEDOL:
		valid = validSEDOL(cleaned)
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedType, kind)
	}
	return cleaned, valid, nil
}

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// expandLetters rewrites A..Z as 10..35, leaving digits alone.
func expandLetters(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isDigit(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%d", c-'A'+10)
		}
	}
	return b.String()
}

// validLEI checks 20 alphanumerics whose letter-expanded value is 1 mod 97
// (ISO 7064 MOD 97-10).
func validLEI(s string) bool {
	if len(s) != 20 || !isAlnum(s) || !isDigit(s[18]) || !isDigit(s[19]) {
		return false
	}
	return mod97(expandLetters(s)) == 1
}

func mod97(digits string) int64 {
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return -1
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64()
}

// validISIN checks a 2-letter country prefix, 9 alphanumerics and a Luhn
// check digit over the letter-expanded code.
func validISIN(s string) bool {
	if len(s) != 12 || !isAlnum(s) || !isDigit(s[11]) {
		return false
	}
	if isDigit(s[0]) || isDigit(s[1]) {
		return false
	}
	return luhn(expandLetters(s))
}

func luhn(s string) bool {
	if len(s) == 0 {
		return false
	}
	var sum int
	parity := len(s) % 2
	for i := 0; i < len(s); i++ {
		d := int(s[i] - '0')
		if i%2 == parity {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

var sedolWeights = [6]int{1, 3, 1, 7, 3, 9}

// validSEDOL checks 6 alphanumerics without vowels plus a weighted check
// digit. Codes starting with a digit must be all digits.
func validSEDOL(s string) bool {
	if len(s) != 7 || !isAlnum(s) || !isDigit(s[6]) || strings.ContainsAny(s, "AEIOU") {
		return false
	}
	if isDigit(s[0]) {
		for i := 1; i < 6; i++ {
			if !isDigit(s[i]) {
				return false
			}
		}
	}
	var sum int
	for i, w := range sedolWeights {
		c := s[i]
		v := int(c - '0')
		if !isDigit(c) {
			v = int(c-'A') + 10
		}
		sum += v * w
	}
	return int(s[6]-'0') == (10-sum%10)%10
}
