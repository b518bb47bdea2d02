package ports

import (
	"context"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

// QueryCorrector normalizes mispronounced or mistranscribed domain terms in
// the raw query. Purely functional over a table loaded at startup.
type QueryCorrector interface {
	Correct(query string) domain.CorrectionResult
}

// IntentClassifier decides whether a corrected query is in-domain. It never
// fails: ambiguous or erroring cases resolve to the conservative
// NON_AGRICULTURE branch.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) domain.Intent
}

// KnowledgeRetriever embeds the query and runs nearest-neighbor search over
// the loaded index. Returns an empty slice when the index is unavailable.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error)
}

// AnswerSynthesizer turns intent plus retrieval results into the final answer
// text. Model failures degrade internally to the no-context fallback; the
// method itself never fails.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, query string, intent domain.Intent, retrieved []domain.RetrievedChunk) (string, domain.ResponseType)
}

// Embedder builds dense vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator is a single zero-temperature completion call with a bounded
// output-token budget.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// KnowledgeBase is the read surface over the persisted vector index and its
// parallel chunk store. Safe for concurrent reads; Reload atomically swaps in
// freshly persisted artifacts.
type KnowledgeBase interface {
	Ready() bool
	Search(queryVector []float32, k int) ([]domain.VectorHit, error)
	Chunk(id string) (domain.DocumentChunk, bool)
	Reload(ctx context.Context) error
}

// KnowledgeWriter persists a rebuilt index and chunk store. Only the offline
// indexer writes; the query path never does.
type KnowledgeWriter interface {
	Rebuild(ctx context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error
}

// AnswerCache stores full envelopes keyed by normalized query text. Entries
// are immutable once written; concurrent writes for the same key are
// idempotent. A replayed envelope must carry its answer content verbatim.
type AnswerCache interface {
	Get(ctx context.Context, query string) (*domain.AnswerEnvelope, bool)
	Put(ctx context.Context, query string, envelope *domain.AnswerEnvelope) error
}

// TextExtractor extracts plain text from a source FAQ document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits extracted text into retrieval units with section metadata.
type Chunker interface {
	Split(text string) []domain.DocumentChunk
}

// IndexEvents publishes and consumes index-rebuilt notifications so a running
// query service can hot-reload its knowledge base.
type IndexEvents interface {
	PublishIndexRebuilt(ctx context.Context, info domain.IndexInfo) error
	SubscribeIndexRebuilt(ctx context.Context, handler func(context.Context, domain.IndexInfo) error) error
}
