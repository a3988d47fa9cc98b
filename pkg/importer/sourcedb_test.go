package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// stubAdapter seeds the sources table without importing anything.
type stubAdapter struct {
	id, url string
}

func (s *stubAdapter) ID() string          { return s.id }
func (s *stubAdapter) Dataset() string     { return "legal-forms" }
func (s *stubAdapter) Description() string { return "stub " + s.id }
func (s *stubAdapter) DefaultURL() string  { return s.url }
func (s *stubAdapter) License() string     { return "CC0" }
func (s *stubAdapter) Import(context.Context, string, string) (Stats, error) {
	return Stats{}, nil
}

func openTestDB(t *testing.T, adapters ...Adapter) *SourceDB {
	t.Helper()
	sdb, err := OpenSourceDB(filepath.Join(t.TempDir(), "sources.db"))
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	if err := sdb.Seed(context.Background(), adapters); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return sdb
}

func TestOpenSourceDBCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	sdb, err := OpenSourceDB(path)
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	defer sdb.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file: %v", err)
	}
	sources, err := sdb.ListSources(context.Background())
	if err != nil || len(sources) != 0 {
		t.Fatalf("ListSources = %v, %v; want empty", sources, err)
	}
}

func TestSeedKeepsOverrides(t *testing.T) {
	ctx := context.Background()
	sdb := openTestDB(t, &stubAdapter{"gleif", "https://example.com/elf.csv"})

	if err := sdb.SetURL(ctx, "gleif", "https://mirror.example.com/elf.csv"); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	if err := sdb.Seed(ctx, []Adapter{&stubAdapter{"gleif", "https://example.com/v2.csv"}}); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	got, err := sdb.GetURL(ctx, "gleif")
	if err != nil {
		t.Fatalf("GetURL: %v", err)
	}
	if got != "https://mirror.example.com/elf.csv" {
		t.Errorf("url = %s, re-seeding must not replace an override", got)
	}
}

func TestUnknownSource(t *testing.T) {
	ctx := context.Background()
	sdb := openTestDB(t)

	if _, err := sdb.GetURL(ctx, "nope"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("GetURL: %v", err)
	}
	if err := sdb.SetURL(ctx, "nope", "https://example.com"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("SetURL: %v", err)
	}
	if err := sdb.RecordImport(ctx, "nope", Stats{}); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("RecordImport: %v", err)
	}
}

func TestRecordCheckAndImport(t *testing.T) {
	ctx := context.Background()
	sdb := openTestDB(t, &stubAdapter{"gleif", "https://example.com/elf.csv"})

	if err := sdb.RecordCheck(ctx, "gleif", 200, nil); err != nil {
		t.Fatalf("RecordCheck: %v", err)
	}
	if err := sdb.RecordImport(ctx, "gleif", Stats{Forms: 42}); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	sources, err := sdb.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	src := sources[0]
	if !src.Healthy() || src.LastCheck == nil || src.LastError != nil {
		t.Errorf("after 200: %+v", src)
	}
	if src.LastImport == nil || src.LastForms == nil || *src.LastForms != 42 {
		t.Errorf("import not recorded: %+v", src)
	}
	if src.Dataset != "legal-forms" {
		t.Errorf("dataset = %q", src.Dataset)
	}

	if err := sdb.RecordCheck(ctx, "gleif", 404, errors.New("HTTP 404")); err != nil {
		t.Fatalf("RecordCheck: %v", err)
	}
	sources, _ = sdb.ListSources(ctx)
	src = sources[0]
	if src.Healthy() || src.LastError == nil || *src.LastError != "HTTP 404" {
		t.Errorf("after 404: status %v error %v", src.LastStatus, src.LastError)
	}
}

func TestListSourcesOrder(t *testing.T) {
	sdb := openTestDB(t,
		&stubAdapter{"zz-last", "https://example.com/z"},
		&stubAdapter{"aa-first", "https://example.com/a"},
	)
	sources, err := sdb.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 || sources[0].AdapterID != "aa-first" {
		t.Fatalf("sources = %+v", sources)
	}
}
