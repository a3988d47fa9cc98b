package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/hazyhaar/entity-cleaner/pkg/batch"
	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
)

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	settingsPath := fs.String("settings", "settings.yaml", "YAML or JSON settings file")
	in := fs.String("in", "", "input .csv or .xlsx file")
	out := fs.String("out", "", "output .csv or .xlsx file")
	var src sources
	fs.StringVar(&src.RulesFile, "rules-file", "", "YAML file of extra regex rules")
	fs.StringVar(&src.LegalFormsDir, "legal-forms-dir", "", "directory of <cc>_legal_forms.json overrides")
	initLogger := logFlags(fs)
	fs.Parse(args)

	if *in == "" || *out == "" {
		fs.Usage()
		os.Exit(2)
	}
	logger := initLogger()

	osfs := afero.NewOsFs()
	settings, err := batch.LoadSettings(osfs, *settingsPath)
	if err != nil {
		fatalf("%v", err)
	}
	st, err := loadStack(src, namecleaner.DefaultConfig(), logger)
	if err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := batch.NewRunner(osfs, st.countries, st.names, logger)
	if err := runner.CleanFile(ctx, settings, *in, *out); err != nil {
		stop()
		fatalf("%v", err)
	}
}
