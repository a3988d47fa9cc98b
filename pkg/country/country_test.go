package country

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/entity-cleaner/pkg/rules"
	"github.com/hazyhaar/entity-cleaner/pkg/table"
)

func loadRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load()
	require.NoError(t, err)
	return reg
}

func TestLoadEmbedded(t *testing.T) {
	t.Parallel()
	reg := loadRegistry(t)
	assert.Equal(t, 249, reg.Len())
}

func TestSearch(t *testing.T) {
	t.Parallel()
	reg := loadRegistry(t)

	tests := []struct {
		in     string
		alpha2 string
	}{
		{"us", "US"},
		{"US", "US"},
		{"usa", "US"},
		{"  fra ", "FR"},
		{"840", "US"},
		{"36", "AU"},
		{"Brazil", "BR"},
		{"brazil", "BR"},
		{"United Kingdom", "GB"},
		{"UK", "GB"},
		{"UAE", "AE"},
		{"Côte d'Ivoire", "CI"},
		{"cote divoire", "CI"},
		{"South Korea", "KR"},
		{"Germny", "DE"},
		{"Switzerlnd", "CH"},
		{"Deutschland", "DE"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := reg.Search(tt.in)
			require.True(t, ok, "Search(%q) found nothing", tt.in)
			assert.Equal(t, tt.alpha2, got.Alpha2)
		})
	}
}

func TestSearchMisses(t *testing.T) {
	t.Parallel()
	reg := loadRegistry(t)
	for _, in := range []string{"", " ", "x", "zz", "zzz", "999", "Acme Analytics", "qwertyuiop"} {
		_, ok := reg.Search(in)
		assert.False(t, ok, "Search(%q) should not match", in)
	}
}

func TestCleanerCase(t *testing.T) {
	t.Parallel()
	reg := loadRegistry(t)

	lower := NewCleaner(reg, rules.CaseLower, Suffixes{})
	res, ok := lower.Clean("FRA")
	require.True(t, ok)
	assert.Equal(t, Result{Name: "france", Alpha2: "fr", Alpha3: "fra"}, res)

	upper := NewCleaner(reg, rules.CaseUpper, Suffixes{})
	res, ok = upper.Clean("france")
	require.True(t, ok)
	assert.Equal(t, "FR", res.Alpha2)
	assert.Equal(t, "FRANCE", res.Name)

	_, ok = upper.Clean("nowhere land")
	assert.False(t, ok)
}

func TestCleanColumn(t *testing.T) {
	t.Parallel()
	reg := loadRegistry(t)
	c := NewCleaner(reg, rules.CaseLower, Suffixes{Alpha2: "_iso2"})

	tbl := table.New([]string{"name", "country"}, [][]string{
		{"Acme", "United States"},
		{"Beta", ""},
		{"Gamma", "Atlantis"},
		{"Delta", "deu"},
	})
	out, err := c.CleanColumn(context.Background(), tbl, "country")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "country", "country_name", "country_iso2", "country_alpha3"}, out.Columns)
	iso2, err := out.Column("country_iso2")
	require.NoError(t, err)
	assert.Equal(t, []string{"us", "", "", "de"}, iso2)

	_, err = c.CleanColumn(context.Background(), tbl, "missing")
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestCleanColumnCancelled(t *testing.T) {
	t.Parallel()
	reg := loadRegistry(t)
	c := NewCleaner(reg, rules.CaseLower, Suffixes{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl := table.New([]string{"country"}, [][]string{{"us"}})
	_, err := c.CleanColumn(ctx, tbl, "country")
	assert.ErrorIs(t, err, context.Canceled)
}
