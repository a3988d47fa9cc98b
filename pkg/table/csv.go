package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// CSVOptions describes a delimited file. Zero values mean comma-separated
// UTF-8.
type CSVOptions struct {
	Separator string `yaml:"csv_file_sep" json:"csv_file_sep"`
	Encoding  string `yaml:"csv_file_encoding" json:"csv_file_encoding"`
}

func (o CSVOptions) comma() (rune, error) {
	if o.Separator == "" {
		return ',', nil
	}
	if o.Separator == `\t` {
		return '\t', nil
	}
	r := []rune(o.Separator)
	if len(r) != 1 {
		return 0, fmt.Errorf("csv separator %q must be a single character", o.Separator)
	}
	return r[0], nil
}

// ReadCSV reads a table whose first record is the header. Non-UTF-8
// encodings are transcoded on the fly.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	comma, err := opts.comma()
	if err != nil {
		return nil, err
	}
	if enc := opts.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		r = transform.NewReader(r, e.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return New(nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, record)
	}
	return New(header, rows), nil
}

// WriteCSV writes the header then every row, padding short rows.
func WriteCSV(w io.Writer, t *Table, opts CSVOptions) error {
	comma, err := opts.comma()
	if err != nil {
		return err
	}
	if enc := opts.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		tw := transform.NewWriter(w, e.NewEncoder())
		defer tw.Close()
		w = tw
	}

	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j := range record {
			record[j] = t.Cell(i, j)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
