package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

func TestLoadServeConfigDefaults(t *testing.T) {
	cfg, err := loadServeConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, ":8420", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "us", cfg.Cleaner.Jurisdiction)
	assert.Equal(t, 50.0, cfg.RateLimit.PerSecond)
	assert.Equal(t, 24*time.Hour, cfg.CheckInterval)
}

func TestLoadServeConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
cleaner:
  jurisdiction: fr
  language: fr
  output_lettercase: title
rate_limit:
  per_second: 5
`), 0o644))
	t.Setenv("ENTITY_CLEANER_ADDR", ":9100")

	cfg, err := loadServeConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr, "environment wins over the file")
	assert.Equal(t, 5.0, cfg.RateLimit.PerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)

	ncfg, err := cfg.cleanerConfig()
	require.NoError(t, err)
	assert.Equal(t, "fr", ncfg.Jurisdiction)
	assert.Equal(t, rules.CaseTitle, ncfg.Case)
	assert.True(t, ncfg.NormalizeLegalTerms)
}

func TestLoadServeConfigExplicitMissing(t *testing.T) {
	_, err := loadServeConfig(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
}

func TestLoadServeConfigRejectsNonPositiveDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("check_interval: -1h\n"), 0o644))
	_, err := loadServeConfig(path, true)
	require.ErrorContains(t, err, "check_interval")

	t.Setenv("ENTITY_CLEANER_SHUTDOWN_TIMEOUT", "0s")
	_, err = loadServeConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.ErrorContains(t, err, "shutdown_timeout")
}

func TestCleanerFlags(t *testing.T) {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	cf := addCleanerFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-jurisdiction", "de", "-case", "upper", "-rules-after", "remove_numbers, ", "-no-legal",
	}))

	cfg, err := cf.config()
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Jurisdiction)
	assert.Equal(t, rules.CaseUpper, cfg.Case)
	assert.False(t, cfg.NormalizeLegalTerms)
	assert.Equal(t, "remove_numbers", cfg.Rules[len(cfg.Rules)-1])
	assert.Len(t, cfg.Rules, len(rules.DefaultPipeline())+1)

	fs = flag.NewFlagSet("clean", flag.ContinueOnError)
	cf = addCleanerFlags(fs)
	require.NoError(t, fs.Parse([]string{"-case", "loud"}))
	_, err = cf.config()
	require.Error(t, err)
}

func TestPrinter(t *testing.T) {
	st, err := loadStack(sources{}, namecleaner.DefaultConfig(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	emit := printer(&buf, st.names, false)
	require.NoError(t, emit("Acme  Widgets LLC"))
	assert.Equal(t, "acme widgets limited liability company\n", buf.String())

	buf.Reset()
	emit = printer(&buf, st.names, true)
	require.NoError(t, emit("Acme & Co"))
	assert.Contains(t, buf.String(), `"input":"Acme & Co"`)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug", "")
	require.NoError(t, err)
	_, err = newLogger("chatty", "")
	require.Error(t, err)
}
