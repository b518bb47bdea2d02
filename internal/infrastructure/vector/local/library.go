package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

// Library serves the knowledge base to the query path and accepts full
// rebuilds from the indexer. It is safe for concurrent readers; Rebuild and
// Reload publish a fresh snapshot without blocking searches in flight.
type Library struct {
	indexPath string
	chunkPath string
	logger    *slog.Logger

	snap atomic.Pointer[snapshot]
}

func NewLibrary(indexPath, chunkPath string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{indexPath: indexPath, chunkPath: chunkPath, logger: logger}
}

func (l *Library) Ready() bool {
	snap := l.snap.Load()
	return snap != nil && len(snap.ids) > 0
}

func (l *Library) Search(query []float32, k int) ([]domain.VectorHit, error) {
	snap := l.snap.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexNotLoaded, "search", fmt.Errorf("no index snapshot"))
	}
	return snap.search(query, k)
}

func (l *Library) Chunk(id string) (domain.DocumentChunk, bool) {
	snap := l.snap.Load()
	if snap == nil {
		return domain.DocumentChunk{}, false
	}
	chunk, ok := snap.chunks[id]
	return chunk, ok
}

// Reload reads the persisted index and chunk store and swaps them in. The
// previous snapshot stays live until the new one is fully assembled, so a
// failed reload leaves the library serving the old data.
func (l *Library) Reload(_ context.Context) error {
	dimension, ids, vectors, err := loadIndex(l.indexPath)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	chunks, err := loadChunks(l.chunkPath)
	if err != nil {
		return fmt.Errorf("load chunk store: %w", err)
	}

	l.snap.Store(&snapshot{
		dimension: dimension,
		ids:       ids,
		vectors:   vectors,
		chunks:    chunks,
	})
	l.logger.Info("knowledge base loaded", "chunks", len(ids), "dimension", dimension)
	return nil
}

// Rebuild persists the new corpus and publishes it in one snapshot swap.
func (l *Library) Rebuild(_ context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "rebuild", fmt.Errorf("empty corpus"))
	}

	dimension := len(vectors[0])
	snap := &snapshot{
		dimension: dimension,
		ids:       make([]string, len(chunks)),
		vectors:   make([][]float32, len(chunks)),
		chunks:    make(map[string]domain.DocumentChunk, len(chunks)),
	}
	for i, chunk := range chunks {
		if len(vectors[i]) != dimension {
			return fmt.Errorf("vector dimension mismatch at %d: got %d, expected %d", i, len(vectors[i]), dimension)
		}
		vec := make([]float32, dimension)
		copy(vec, vectors[i])
		snap.ids[i] = chunk.ID
		snap.vectors[i] = vec
		snap.chunks[chunk.ID] = chunk
	}

	if err := saveIndex(l.indexPath, snap); err != nil {
		return err
	}
	if err := saveChunks(l.chunkPath, chunks); err != nil {
		return err
	}

	l.snap.Store(snap)
	l.logger.Info("knowledge base rebuilt", "chunks", len(chunks), "dimension", dimension)
	return nil
}

// Info describes the currently loaded snapshot.
func (l *Library) Info() domain.IndexInfo {
	snap := l.snap.Load()
	if snap == nil {
		return domain.IndexInfo{}
	}
	return domain.IndexInfo{Chunks: len(snap.ids), Dimension: snap.dimension}
}
