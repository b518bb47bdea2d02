// Package extractor turns source FAQ documents into plain text for chunking.
// The format is picked from the file extension: PDF and XLSX get dedicated
// readers, everything else is treated as UTF-8 text.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".xlsx":
		return extractXLSX(path)
	default:
		return extractPlainText(path)
	}
}

func extractPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("unsupported binary format: %s", filepath.Base(path))
	}
	return strings.TrimSpace(string(raw)), nil
}
