package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "clean":
		cmdClean(os.Args[2:])
	case "batch":
		cmdBatch(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "rules":
		cmdRules(os.Args[2:])
	case "legal-forms":
		cmdLegalForms(os.Args[2:])
	case "version":
		fmt.Println(version)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: entitycleaner <command> [flags]

Commands:
  clean        Clean company names given as arguments or on stdin
  batch        Clean the columns of a CSV or XLSX file described by a settings file
  serve        Start the HTTP + MCP server
  import       Refresh legal-form dictionaries from public registers
  rules        List the cleaning rules
  legal-forms  List jurisdictions, or the legal forms of one
  version      Print the version

Run "entitycleaner <command> -h" for the flags of a command.
`)
}

// logFlags registers -log-level and -log-file on fs. The returned func
// builds the logger once fs has been parsed.
func logFlags(fs *flag.FlagSet) func() *slog.Logger {
	level := fs.String("log-level", "info", "log level: debug, info, warn or error")
	file := fs.String("log-file", "", "also write logs to this file, rotated at 50 MB")
	return func() *slog.Logger {
		logger, err := newLogger(*level, *file)
		if err != nil {
			fatalf("%v", err)
		}
		slog.SetDefault(logger)
		return logger
	}
}

func newLogger(level, file string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	var w io.Writer = os.Stderr
	if file != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "entitycleaner: "+format+"\n", args...)
	os.Exit(1)
}
