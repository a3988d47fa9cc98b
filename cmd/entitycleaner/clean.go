package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/hazyhaar/entity-cleaner/pkg/legal"
	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

func cmdClean(args []string) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	cf := addCleanerFlags(fs)
	asJSON := fs.Bool("json", false, "print one JSON result per name")
	initLogger := logFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: entitycleaner clean [flags] [name ...]\n\nWith no names, one name per line is read from stdin.")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg, err := cf.config()
	if err != nil {
		fatalf("%v", err)
	}
	st, err := loadStack(cf.src, cfg, initLogger())
	if err != nil {
		fatalf("%v", err)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	emit := printer(out, st.names, *asJSON)

	if fs.NArg() > 0 {
		for _, name := range fs.Args() {
			if err := emit(name); err != nil {
				out.Flush()
				fatalf("%v", err)
			}
		}
		return
	}
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		if err := emit(sc.Text()); err != nil {
			out.Flush()
			fatalf("line %d: %v", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		out.Flush()
		fatalf("read stdin: %v", err)
	}
}

func printer(w io.Writer, c *namecleaner.Cleaner, asJSON bool) func(string) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return func(name string) error {
			res, err := c.Inspect(name, "")
			if err != nil {
				return err
			}
			return enc.Encode(res)
		}
	}
	return func(name string) error {
		cleaned, err := c.Clean(name)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, cleaned)
		return err
	}
}

func cmdRules(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	rulesFile := fs.String("rules-file", "", "YAML file of extra regex rules")
	fs.Parse(args)

	cat := rules.Default()
	if *rulesFile != "" {
		if err := cat.LoadFile(*rulesFile); err != nil {
			fatalf("%v", err)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDEFAULT\tDESCRIPTION")
	for _, r := range cat.List() {
		def := ""
		if r.Default {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Kind, def, r.Description)
	}
	tw.Flush()
}

func cmdLegalForms(args []string) {
	fs := flag.NewFlagSet("legal-forms", flag.ExitOnError)
	jurisdiction := fs.String("jurisdiction", "", "print the forms of this jurisdiction")
	language := fs.String("language", "", "restrict to one language")
	dir := fs.String("legal-forms-dir", "", "directory of <cc>_legal_forms.json overrides")
	fs.Parse(args)

	dict, err := legal.Load(nil)
	if err != nil {
		fatalf("%v", err)
	}
	if *dir != "" {
		if err := dict.LoadDir(*dir); err != nil {
			fatalf("%v", err)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if *jurisdiction == "" {
		fmt.Fprintln(tw, "JURISDICTION\tLANGUAGES\tTERMS\tVARIANTS")
		for _, info := range dict.List() {
			fmt.Fprintf(tw, "%s\t%v\t%d\t%d\n", info.Jurisdiction, info.Languages, info.Terms, info.Variants)
		}
		return
	}
	forms, ok := dict.Forms(*jurisdiction, *language)
	if !ok {
		tw.Flush()
		fatalf("no legal forms for jurisdiction %q language %q", *jurisdiction, *language)
	}
	fmt.Fprintln(tw, "CANONICAL\tVARIANTS")
	for _, canonical := range sortedForms(forms) {
		fmt.Fprintf(tw, "%s\t%v\n", canonical, forms[canonical])
	}
}

func sortedForms(forms legal.Forms) []string {
	keys := make([]string, 0, len(forms))
	for k := range forms {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
