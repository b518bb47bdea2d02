package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
)

// VectorRetriever embeds the query, normalizes the vector and runs inner
// product search over the loaded knowledge base. Read-only; safe for
// concurrent queries.
type VectorRetriever struct {
	embedder  ports.Embedder
	knowledge ports.KnowledgeBase
	logger    *slog.Logger
}

func NewVectorRetriever(embedder ports.Embedder, knowledge ports.KnowledgeBase, logger *slog.Logger) *VectorRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorRetriever{
		embedder:  embedder,
		knowledge: knowledge,
		logger:    logger,
	}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 2
	}
	if r.knowledge == nil || !r.knowledge.Ready() {
		r.logger.Warn("knowledge base not loaded, returning no results")
		return nil, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	NormalizeVector(vector)

	hits, err := r.knowledge.Search(vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		// Sentinel ids mark empty index slots; skip them.
		if hit.ChunkID == "" {
			continue
		}
		chunk, ok := r.knowledge.Chunk(hit.ChunkID)
		if !ok {
			r.logger.Warn("index hit without chunk store entry", "chunk_id", hit.ChunkID)
			continue
		}
		out = append(out, domain.RetrievedChunk{
			ChunkID:    chunk.ID,
			Text:       chunk.Content,
			Section:    chunk.Metadata.Section,
			Subsection: chunk.Metadata.Subsection,
			Entities:   chunk.Metadata.Entities,
			Score:      hit.Score,
		})
	}
	return out, nil
}

// NormalizeVector scales the vector to unit L2 norm in place, so inner
// product against normalized index vectors equals cosine similarity.
func NormalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
