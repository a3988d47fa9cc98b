package bankid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/entity-cleaner/pkg/rules"
	"github.com/hazyhaar/entity-cleaner/pkg/table"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind    Type
		raw     string
		cleaned string
		valid   bool
	}{
		{LEI, "5493001KJTIIGC8Y1R12", "5493001KJTIIGC8Y1R12", true},
		{LEI, "5493 001k jtii gc8y 1r12", "5493001KJTIIGC8Y1R12", true},
		{LEI, "529900T8BM49AURSDO55", "529900T8BM49AURSDO55", true},
		{LEI, "5493001KJTIIGC8Y1R13", "5493001KJTIIGC8Y1R13", false},
		{LEI, "5493001KJTIIGC8Y1R1", "5493001KJTIIGC8Y1R1", false},
		{ISIN, "US0378331005", "US0378331005", true},
		{ISIN, "gb00b1yw4409", "GB00B1YW4409", true},
		{ISIN, "DE000BAY0017", "DE000BAY0017", true},
		{ISIN, "US0378331006", "US0378331006", false},
		{ISIN, "120378331004", "120378331004", false},
		{ISIN, "US03783310é05", "US0378331005", true},
		{SEDOL, "0263494", "0263494", true},
		{SEDOL, "B0YBKJ7", "B0YBKJ7", true},
		{SEDOL, "b0ybkj7", "B0YBKJ7", true},
		{SEDOL, "B0YBKJ6", "B0YBKJ6", false},
		{SEDOL, "BAE1234", "BAE1234", false},
		{SEDOL, "0B63494", "0B63494", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			t.Parallel()
			cleaned, valid, err := Validate(tt.kind, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.cleaned, cleaned)
			assert.Equal(t, tt.valid, valid)
		})
	}
}

func TestValidateUnsupported(t *testing.T) {
	t.Parallel()
	_, _, err := Validate("cusip", "037833100")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ParseType("cusip")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	kind, err := ParseType(" ISIN ")
	require.NoError(t, err)
	assert.Equal(t, ISIN, kind)
}

func TestCleanerOptions(t *testing.T) {
	t.Parallel()
	c, err := NewCleaner(ISIN, WithCase(rules.CaseLower), WithInvalidAsEmpty(true))
	require.NoError(t, err)

	res, err := c.Clean("US0378331005")
	require.NoError(t, err)
	assert.Equal(t, Result{ID: "us0378331005", Valid: true}, res)

	res, err = c.Clean("US0378331006")
	require.NoError(t, err)
	assert.Equal(t, Result{ID: "", Valid: false}, res)

	_, err = NewCleaner("cusip")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCleanColumn(t *testing.T) {
	t.Parallel()
	c, err := NewCleaner(SEDOL, WithSuffixes(Suffixes{Valid: "_ok"}))
	require.NoError(t, err)

	tbl := table.New([]string{"sedol"}, [][]string{{"b0ybkj7"}, {""}, {"B0YBKJ6"}})
	out, err := c.CleanColumn(context.Background(), tbl, "sedol")
	require.NoError(t, err)
	assert.Equal(t, []string{"sedol", "sedol_cleaned", "sedol_ok"}, out.Columns)
	assert.Equal(t, [][]string{
		{"b0ybkj7", "B0YBKJ7", "true"},
		{"", "", ""},
		{"B0YBKJ6", "B0YBKJ6", "false"},
	}, out.Rows)

	_, err = c.CleanColumn(context.Background(), tbl, "isin")
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}
