package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askdocs-ai/askdocs/engine/domain"
)

func writeDOCX(t *testing.T, path string, paragraphs []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	if _, err := w.Write([]byte(b.String())); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestForFileDispatch(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"manual.pdf", true},
		{"policy.DOCX", true},
		{"legacy.doc", true},
		{"notes.txt", false},
		{"image.png", false},
	}
	for _, c := range cases {
		if _, ok := ForFile(c.path); ok != c.want {
			t.Errorf("ForFile(%q) = %v, want %v", c.path, ok, c.want)
		}
	}
}

func TestScanDirMissingRoot(t *testing.T) {
	_, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestScanDirFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.pdf", "a.docx", "skip.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sub := filepath.Join(root, "hr")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "c.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ScanDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %v", paths)
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1] >= paths[i] {
			t.Fatalf("paths not sorted: %v", paths)
		}
	}
}

func TestDOCXExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.docx")
	writeDOCX(t, path, []string{"First paragraph.", "Second paragraph."})

	doc, err := DOCX{}.Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Format != domain.FormatDOCX {
		t.Errorf("format = %q", doc.Format)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Number != nil {
		t.Error("docx page should be unpaged")
	}
	want := "First paragraph.\n\nSecond paragraph."
	if doc.Pages[0].Text != want {
		t.Errorf("text = %q, want %q", doc.Pages[0].Text, want)
	}
}

func TestDOCXExtractEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	writeDOCX(t, path, nil)

	doc, err := DOCX{}.Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected no pages, got %d", len(doc.Pages))
	}
}

func TestDOCXExtractCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := DOCX{}.Extract(path)
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.File != path {
		t.Errorf("error file = %q", ee.File)
	}
}

func TestPDFExtractCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7 garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := PDF{}.Extract(path)
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}
