package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

// serveConfig is read from an optional YAML file, then from the
// environment, which wins. A .env file in the working directory is loaded
// into the environment first.
type serveConfig struct {
	Addr            string        `yaml:"addr" env:"ENTITY_CLEANER_ADDR" env-default:":8420"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ENTITY_CLEANER_SHUTDOWN_TIMEOUT" env-default:"10s"`

	RulesFile     string `yaml:"rules_file" env:"ENTITY_CLEANER_RULES_FILE"`
	LegalFormsDir string `yaml:"legal_forms_dir" env:"ENTITY_CLEANER_LEGAL_FORMS_DIR"`

	Cleaner struct {
		Jurisdiction  string `yaml:"jurisdiction" env:"ENTITY_CLEANER_JURISDICTION" env-default:"us"`
		Language      string `yaml:"language" env:"ENTITY_CLEANER_LANGUAGE" env-default:"en"`
		Case          string `yaml:"output_lettercase" env:"ENTITY_CLEANER_CASE" env-default:"lower"`
		Merge         bool   `yaml:"merge_legal_terms" env:"ENTITY_CLEANER_MERGE_LEGAL_TERMS"`
		RemoveUnicode bool   `yaml:"remove_unicode_chars" env:"ENTITY_CLEANER_REMOVE_UNICODE"`
	} `yaml:"cleaner"`

	RateLimit struct {
		PerSecond float64 `yaml:"per_second" env:"ENTITY_CLEANER_RATE" env-default:"50"`
		Burst     int     `yaml:"burst" env:"ENTITY_CLEANER_BURST" env-default:"100"`
	} `yaml:"rate_limit"`

	// SourcesDB, when set, enables periodic checks of the import sources.
	SourcesDB     string        `yaml:"sources_db" env:"ENTITY_CLEANER_SOURCES_DB"`
	CheckInterval time.Duration `yaml:"check_interval" env:"ENTITY_CLEANER_CHECK_INTERVAL" env-default:"24h"`

	LogLevel string `yaml:"log_level" env:"ENTITY_CLEANER_LOG_LEVEL" env-default:"info"`
	LogFile  string `yaml:"log_file" env:"ENTITY_CLEANER_LOG_FILE"`
}

// loadServeConfig reads path if it exists. A missing file is an error only
// when explicit is set.
func loadServeConfig(path string, explicit bool) (*serveConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	var cfg serveConfig
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	case explicit:
		return nil, fmt.Errorf("config: %w", statErr)
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("config: check_interval must be positive, got %s", cfg.CheckInterval)
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("config: shutdown_timeout must be positive, got %s", cfg.ShutdownTimeout)
	}
	return &cfg, nil
}

func (c *serveConfig) cleanerConfig() (namecleaner.Config, error) {
	cfg := namecleaner.DefaultConfig()
	letter, err := rules.ParseCase(c.Cleaner.Case)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.Case = letter
	cfg.Jurisdiction = c.Cleaner.Jurisdiction
	cfg.Language = c.Cleaner.Language
	cfg.MergeLegalTerms = c.Cleaner.Merge
	cfg.RemoveUnicode = c.Cleaner.RemoveUnicode
	return cfg, nil
}
