package importer

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ELF Code,Country Code\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "elf.csv")
	if err := downloadFile(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "ELF Code,Country Code\n" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadFileRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < downloadAttempts {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if err := downloadFile(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x")); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}
	if n := calls.Load(); n != downloadAttempts {
		t.Errorf("calls = %d, want %d", n, downloadAttempts)
	}
}

func TestDownloadFileGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := downloadFile(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatal("expected an error once every attempt failed")
	}
}

func TestDownloadFileCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := downloadFile(ctx, srv.URL, filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > time.Second {
		t.Error("backoff ignored the context deadline")
	}
}

func TestUnzipFile(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "elf.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("nested/2023-elf-code-list.csv")
	w.Write([]byte("a,b\n"))
	zw.Close()
	f.Close()

	files, err := unzipFile(archive, dir)
	if err != nil {
		t.Fatalf("unzipFile: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "2023-elf-code-list.csv" {
		t.Fatalf("files = %v", files)
	}
	if data, _ := os.ReadFile(files[0]); string(data) != "a,b\n" {
		t.Errorf("content = %q", data)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &Manifest{
		Source:     "gleif-elf",
		Dataset:    "legal-forms",
		SourceURL:  "https://example.com/elf.csv",
		License:    "CC0 1.0",
		ImportedAt: at,
		Stats:      Stats{Jurisdictions: 2, Forms: 5, Variants: 9, Ambiguous: 1},
	}
	if err := writeManifest(dir, m); err != nil {
		t.Fatalf("writeManifest: %v", err)
	}
	got, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.Source != "gleif-elf" || !got.ImportedAt.Equal(at) || got.Stats != m.Stats {
		t.Errorf("manifest = %+v", got)
	}
}
