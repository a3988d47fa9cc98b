package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hazyhaar/entity-cleaner/pkg/importer"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("source", "", "import source ID, e.g. gleif-elf")
	all := fs.Bool("all", false, "import every source")
	outputDir := fs.String("output-dir", "legal_forms", "directory receiving <cc>_legal_forms.json files")
	setURL := fs.String("set-url", "", "with -source, override the source URL and exit")
	check := fs.Bool("check", false, "probe every source URL and exit")
	initLogger := logFlags(fs)
	fs.Parse(args)
	logger := initLogger()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fatalf("%v", err)
	}
	sdb, err := importer.OpenSourceDB(filepath.Join(*outputDir, "sources.db"))
	if err != nil {
		fatalf("%v", err)
	}
	defer sdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Hour)
	defer cancel()

	if err := sdb.Seed(ctx, importer.All()); err != nil {
		fatalf("%v", err)
	}

	switch {
	case *check:
		if _, failed := importer.NewChecker(sdb, logger, time.Hour).CheckAll(ctx); failed > 0 {
			cancel()
			sdb.Close()
			os.Exit(1)
		}
		return
	case *setURL != "":
		if *source == "" {
			fatalf("-set-url needs -source")
		}
		if err := sdb.SetURL(ctx, *source, *setURL); err != nil {
			fatalf("%v", err)
		}
		logger.Info("source url updated", "source", *source, "url", *setURL)
		return
	case !*all && *source == "":
		listSources(ctx, sdb)
		return
	}

	adapters := importer.All()
	if !*all {
		a, err := importer.Get(*source)
		if err != nil {
			fatalf("%v", err)
		}
		adapters = []importer.Adapter{a}
	}

	var failed int
	for _, a := range adapters {
		if err := runImport(ctx, logger, sdb, a, *outputDir); err != nil {
			logger.Error("import failed", "source", a.ID(), "error", err)
			failed++
		}
	}
	if failed > 0 {
		cancel()
		sdb.Close()
		os.Exit(1)
	}
}

func runImport(ctx context.Context, logger *slog.Logger, sdb *importer.SourceDB, a importer.Adapter, outputDir string) error {
	url, err := sdb.GetURL(ctx, a.ID())
	if err != nil {
		return err
	}
	start := time.Now()
	logger.Info("import started", "source", a.ID(), "url", url)
	stats, err := a.Import(ctx, url, outputDir)
	if err != nil {
		return err
	}
	if err := sdb.RecordImport(ctx, a.ID(), stats); err != nil {
		return err
	}
	logger.Info("import complete",
		"source", a.ID(),
		"dir", outputDir,
		"jurisdictions", stats.Jurisdictions,
		"forms", stats.Forms,
		"variants", stats.Variants,
		"ambiguous", stats.Ambiguous,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func listSources(ctx context.Context, sdb *importer.SourceDB) {
	list, err := sdb.ListSources(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tDATASET\tSTATUS\tLAST IMPORT\tURL")
	for _, src := range list {
		status, imported := "-", "-"
		if src.LastStatus != nil {
			status = fmt.Sprint(*src.LastStatus)
		}
		if src.LastImport != nil {
			imported = src.LastImport.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", src.AdapterID, src.Dataset, status, imported, src.SourceURL)
	}
	tw.Flush()
	fmt.Println("\nUsage: entitycleaner import -source <id> | -all [-output-dir <dir>]")
}
