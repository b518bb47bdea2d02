package domain

// ChunkMetadata describes where a chunk came from and which domain entities
// (products, crops, pests) it mentions.
type ChunkMetadata struct {
	Section    string   `json:"section"`
	Subsection string   `json:"subsection,omitempty"`
	Entities   []string `json:"entities,omitempty"`
}

// DocumentChunk is the atomic unit of retrieval. Chunks are produced by the
// offline indexer; the query path only ever reads them.
type DocumentChunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// VectorHit is a raw nearest-neighbor result from the vector index.
type VectorHit struct {
	ChunkID string
	Score   float64
}

// IndexInfo summarizes a completed index build.
type IndexInfo struct {
	Chunks    int    `json:"chunks"`
	Dimension int    `json:"dimension"`
	BuiltAt   string `json:"built_at"`
}
