package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.md")
	if err := os.WriteFile(path, []byte("  # FAQ\n\nThrips control notes.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# FAQ\n\nThrips control notes." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsBinaryContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New().Extract(context.Background(), path); err == nil {
		t.Fatalf("expected error for non-UTF8 content")
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "absent.md")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestExtractEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestExtractHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Extract(ctx, "any.txt"); err == nil {
		t.Fatalf("expected context error")
	}
}
