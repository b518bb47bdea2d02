package local

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLibrary(filepath.Join(dir, "index.bin"), filepath.Join(dir, "chunks.json"), logger)
}

func unit(x, y float32) []float32 {
	norm := float32(math.Sqrt(float64(x*x + y*y)))
	if norm == 0 {
		return []float32{0, 0}
	}
	return []float32{x / norm, y / norm}
}

func seedCorpus() ([]domain.DocumentChunk, [][]float32) {
	chunks := []domain.DocumentChunk{
		{ID: "c1", Content: "Thrips control in chilli.", Metadata: domain.ChunkMetadata{Section: "Pests"}},
		{ID: "c2", Content: "Late blight in tomato.", Metadata: domain.ChunkMetadata{Section: "Diseases"}},
		{ID: "c3", Content: "Dormulin dosage.", Metadata: domain.ChunkMetadata{Section: "Products"}},
	}
	vectors := [][]float32{unit(1, 0), unit(0, 1), unit(1, 1)}
	return chunks, vectors
}

func TestLibraryStartsNotReady(t *testing.T) {
	l := newTestLibrary(t)
	if l.Ready() {
		t.Fatalf("empty library must not report ready")
	}
	if _, err := l.Search(unit(1, 0), 2); !domain.IsKind(err, domain.ErrIndexNotLoaded) {
		t.Fatalf("expected index-not-loaded error, got %v", err)
	}
}

func TestRebuildThenSearch(t *testing.T) {
	l := newTestLibrary(t)
	chunks, vectors := seedCorpus()
	if err := l.Rebuild(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if !l.Ready() {
		t.Fatalf("library must be ready after rebuild")
	}

	hits, err := l.Search(unit(1, 0), 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "c1" {
		t.Fatalf("expected c1 as best match, got %s", hits[0].ChunkID)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("hits must be in descending score order: %+v", hits)
	}
	if math.Abs(hits[0].Score-1.0) > 1e-5 {
		t.Fatalf("identical unit vectors must score ~1.0, got %f", hits[0].Score)
	}

	chunk, ok := l.Chunk("c2")
	if !ok || chunk.Metadata.Section != "Diseases" {
		t.Fatalf("chunk lookup failed: %+v", chunk)
	}
}

func TestReloadRestoresPersistedState(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.bin")
	chunkPath := filepath.Join(dir, "chunks.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writer := NewLibrary(indexPath, chunkPath, logger)
	chunks, vectors := seedCorpus()
	if err := writer.Rebuild(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	reader := NewLibrary(indexPath, chunkPath, logger)
	if err := reader.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !reader.Ready() {
		t.Fatalf("reloaded library must be ready")
	}

	hits, err := reader.Search(unit(0, 1), 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c2" {
		t.Fatalf("unexpected hits after reload: %+v", hits)
	}
	info := reader.Info()
	if info.Chunks != 3 || info.Dimension != 2 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestReloadMissingFilesKeepsOldSnapshot(t *testing.T) {
	l := newTestLibrary(t)
	chunks, vectors := seedCorpus()
	if err := l.Rebuild(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	broken := NewLibrary(filepath.Join(t.TempDir(), "missing.bin"), filepath.Join(t.TempDir(), "missing.json"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	broken.snap.Store(l.snap.Load())
	if err := broken.Reload(context.Background()); err == nil {
		t.Fatalf("expected reload error for missing files")
	}
	if !broken.Ready() {
		t.Fatalf("failed reload must keep the previous snapshot live")
	}
}

func TestRebuildRejectsMismatchedInput(t *testing.T) {
	l := newTestLibrary(t)
	chunks, _ := seedCorpus()

	if err := l.Rebuild(context.Background(), chunks, [][]float32{unit(1, 0)}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if err := l.Rebuild(context.Background(), nil, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input for empty corpus, got %v", err)
	}
	ragged := [][]float32{unit(1, 0), unit(0, 1), {0.1}}
	if err := l.Rebuild(context.Background(), chunks, ragged); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	l := newTestLibrary(t)
	chunks, vectors := seedCorpus()
	if err := l.Rebuild(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if _, err := l.Search([]float32{1, 0, 0}, 2); err == nil {
		t.Fatalf("expected query dimension mismatch error")
	}
}

func TestSearchTopKClamped(t *testing.T) {
	l := newTestLibrary(t)
	chunks, vectors := seedCorpus()
	if err := l.Rebuild(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	hits, err := l.Search(unit(1, 1), 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected all 3 hits, got %d", len(hits))
	}
}
