// Package batch cleans whole CSV or XLSX files as described by a settings
// document: select and rename columns, then clean countries, identifiers
// and company names, in that order.
package batch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/entity-cleaner/pkg/bankid"
	"github.com/hazyhaar/entity-cleaner/pkg/table"
)

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("invalid batch settings")

// Settings is a batch cleaning job. Settings files are YAML; JSON files
// parse as well.
type Settings struct {
	FileProcessing table.CSVOptions `yaml:"file_processing"`
	// Attributes selects input columns and renames them, in order.
	Attributes Pairs            `yaml:"attribute_processing" validate:"omitempty,dive"`
	Country    *CountrySettings `yaml:"country"`
	ID         *IDSettings      `yaml:"id"`
	Name       *NameSettings    `yaml:"name"`
	// Text is the older key for the name section.
	Text *NameSettings `yaml:"text"`
}

type CountrySettings struct {
	InputCountries []string `yaml:"input_countries" validate:"required,min=1,dive,required"`
	NameSuffix     string   `yaml:"name_suffix_clean" validate:"required"`
	Alpha2Suffix   string   `yaml:"alpha2_suffix_clean" validate:"required"`
	Alpha3Suffix   string   `yaml:"alpha3_suffix_clean" validate:"required"`
	Case           string   `yaml:"output_letter_case" validate:"omitempty,lettercase"`
}

type IDSettings struct {
	// InputIDs maps identifier columns to their scheme (lei, isin, sedol).
	InputIDs       Pairs  `yaml:"input_ids" validate:"required,min=1,dive"`
	CleanSuffix    string `yaml:"id_suffix_clean" validate:"required"`
	ValidSuffix    string `yaml:"id_suffix_valid" validate:"required"`
	InvalidAsEmpty Flag   `yaml:"set_null_for_invalid_ids"`
	Case           string `yaml:"output_letter_case" validate:"omitempty,lettercase"`
}

type NameSettings struct {
	InputName  string `yaml:"input_company_name" validate:"required"`
	OutputName string `yaml:"output_company_name" validate:"required"`
	// InputCountry names the country column. With UseCleanCountry the
	// alpha2 column produced by the country step supplies each row's
	// jurisdiction.
	InputCountry        string   `yaml:"input_country" validate:"required_if=UseCleanCountry true"`
	UseCleanCountry     Flag     `yaml:"use_clean_country"`
	NormalizeLegalTerms Flag     `yaml:"normalize_legal_terms"`
	MergeLegalTerms     Flag     `yaml:"merge_legal_terms"`
	RemoveUnicode       Flag     `yaml:"remove_unicode_chars"`
	Case                string   `yaml:"output_letter_case" validate:"omitempty,lettercase"`
	Rules               []string `yaml:"cleaning_rules"`
	Jurisdiction        string   `yaml:"jurisdiction"`
	Language            string   `yaml:"language"`
}

// Flag is a boolean that also accepts quoted spellings such as "True".
type Flag bool

func (f *Flag) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean", n.Line)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(n.Value))
	if err != nil {
		return fmt.Errorf("line %d: %q is not a boolean", n.Line, n.Value)
	}
	*f = Flag(v)
	return nil
}

// Pair is one entry of an ordered YAML mapping.
type Pair struct {
	Key   string `validate:"required"`
	Value string `validate:"required"`
}

// Pairs decodes a YAML mapping keeping document order.
type Pairs []Pair

func (p *Pairs) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	out := make(Pairs, 0, len(n.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %q must be a string", v.Line, k.Value)
		}
		if seen[k.Value] {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		seen[k.Value] = true
		out = append(out, Pair{Key: k.Value, Value: v.Value})
	}
	*p = out
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("lettercase", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "lower", "upper", "title", "asis":
			return true
		}
		return false
	})
	return v
}

// ParseSettings decodes and validates a settings document.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse batch settings: %w", err)
	}
	if s.Name == nil {
		s.Name = s.Text
	}
	s.Text = nil
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSettings reads a settings file from fs.
func LoadSettings(fs afero.Fs, path string) (*Settings, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read batch settings: %w", err)
	}
	return ParseSettings(data)
}

// Validate checks field constraints and the links between sections.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if s.ID != nil {
		for _, p := range s.ID.InputIDs {
			if _, err := bankid.ParseType(p.Value); err != nil {
				return fmt.Errorf("%w: id column %q: %w", ErrInvalidSettings, p.Key, err)
			}
		}
	}
	if s.Name != nil && s.Name.UseCleanCountry {
		if s.Country == nil {
			return fmt.Errorf("%w: use_clean_country needs a country section", ErrInvalidSettings)
		}
		found := false
		for _, c := range s.Country.InputCountries {
			found = found || c == s.Name.InputCountry
		}
		if !found {
			return fmt.Errorf("%w: input_country %q is not among the cleaned countries", ErrInvalidSettings, s.Name.InputCountry)
		}
	}
	return nil
}
