// Package extract turns office documents on disk into domain.Documents.
// PDF extraction is page-aware; DOCX has no page concept and yields a
// single unpaged page of paragraph text.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/askdocs-ai/askdocs/engine/domain"
)

// Extractor parses one file format into pages of plain text.
type Extractor interface {
	Extract(path string) (domain.Document, error)
}

// ForFile picks an extractor by file extension. The second return is false
// for unsupported extensions, which callers skip silently.
func ForFile(path string) (Extractor, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDF{}, true
	case ".docx", ".doc":
		return DOCX{}, true
	default:
		return nil, false
	}
}

// ScanDir walks root and returns the supported document paths in sorted
// order. A missing root is a domain.NotFoundError.
func ScanDir(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &domain.NotFoundError{Path: root}
	}
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := ForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract: scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
