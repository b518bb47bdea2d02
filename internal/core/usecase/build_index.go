package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
)

const embedBatchSize = 64

// BuildIndexUseCase is the offline ingestion pipeline: extract FAQ text,
// chunk it, embed the chunks, normalize the vectors and persist index plus
// chunk store. The query service only ever reads the resulting artifacts.
type BuildIndexUseCase struct {
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	writer    ports.KnowledgeWriter
	events    ports.IndexEvents
	logger    *slog.Logger
}

func NewBuildIndexUseCase(
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	writer ports.KnowledgeWriter,
	events ports.IndexEvents,
	logger *slog.Logger,
) *BuildIndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildIndexUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		writer:    writer,
		events:    events,
		logger:    logger,
	}
}

func (uc *BuildIndexUseCase) BuildFromFile(ctx context.Context, path string) (domain.IndexInfo, error) {
	text, err := uc.extractor.Extract(ctx, path)
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return domain.IndexInfo{}, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty document"))
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.IndexInfo{}, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return domain.IndexInfo{}, err
	}
	for _, v := range vectors {
		NormalizeVector(v)
	}

	if err := uc.writer.Rebuild(ctx, chunks, vectors); err != nil {
		return domain.IndexInfo{}, fmt.Errorf("persist index: %w", err)
	}

	info := domain.IndexInfo{
		Chunks:    len(chunks),
		Dimension: len(vectors[0]),
		BuiltAt:   time.Now().UTC().Format(time.RFC3339),
	}

	if uc.events != nil {
		if err := uc.events.PublishIndexRebuilt(ctx, info); err != nil {
			// The build itself succeeded; running services just miss the
			// hot-reload signal until restart.
			uc.logger.Warn("publish index-rebuilt event failed", "error", err)
		}
	}

	uc.logger.Info("index built", "chunks", info.Chunks, "dimension", info.Dimension)
	return info, nil
}

func (uc *BuildIndexUseCase) embedChunks(ctx context.Context, chunks []domain.DocumentChunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}
		batch, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
		}
		if len(batch) != len(texts) {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), len(texts)),
			)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
