package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

type embedderFake struct {
	vector []float32
	err    error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), f.vector...)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.vector...), nil
}

type knowledgeFake struct {
	ready  bool
	hits   []domain.VectorHit
	chunks map[string]domain.DocumentChunk
	err    error
	gotK   int
}

func (f *knowledgeFake) Ready() bool { return f.ready }

func (f *knowledgeFake) Search(_ []float32, k int) ([]domain.VectorHit, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *knowledgeFake) Chunk(id string) (domain.DocumentChunk, bool) {
	c, ok := f.chunks[id]
	return c, ok
}

func (f *knowledgeFake) Reload(context.Context) error { return nil }

func TestRetrieveReturnsEmptyWhenIndexNotLoaded(t *testing.T) {
	r := NewVectorRetriever(&embedderFake{vector: []float32{1, 0}}, &knowledgeFake{ready: false}, nil)
	got, err := r.Retrieve(context.Background(), "thrips in chilli", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results from unloaded index, got %d", len(got))
	}
}

func TestRetrieveFiltersSentinelAndMissingChunks(t *testing.T) {
	kb := &knowledgeFake{
		ready: true,
		hits: []domain.VectorHit{
			{ChunkID: "c1", Score: 0.91},
			{ChunkID: "", Score: 0.5},
			{ChunkID: "ghost", Score: 0.4},
		},
		chunks: map[string]domain.DocumentChunk{
			"c1": {ID: "c1", Content: "thrips control", Metadata: domain.ChunkMetadata{Section: "Pests"}},
		},
	}
	r := NewVectorRetriever(&embedderFake{vector: []float32{3, 4}}, kb, nil)

	got, err := r.Retrieve(context.Background(), "thrips", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result after filtering, got %d", len(got))
	}
	if got[0].ChunkID != "c1" || got[0].Score != 0.91 || got[0].Section != "Pests" {
		t.Fatalf("unexpected result: %+v", got[0])
	}
}

func TestRetrieveDefaultTopK(t *testing.T) {
	kb := &knowledgeFake{ready: true}
	r := NewVectorRetriever(&embedderFake{vector: []float32{1}}, kb, nil)
	if _, err := r.Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if kb.gotK != 2 {
		t.Fatalf("expected default top_k=2, got %d", kb.gotK)
	}
}

func TestRetrieveEmbedError(t *testing.T) {
	r := NewVectorRetriever(&embedderFake{err: errors.New("embed fail")}, &knowledgeFake{ready: true}, nil)
	if _, err := r.Retrieve(context.Background(), "q", 2); err == nil {
		t.Fatalf("expected error from embedder")
	}
}

func TestRetrieveSearchError(t *testing.T) {
	kb := &knowledgeFake{ready: true, err: errors.New("search fail")}
	r := NewVectorRetriever(&embedderFake{vector: []float32{1}}, kb, nil)
	if _, err := r.Retrieve(context.Background(), "q", 2); err == nil {
		t.Fatalf("expected error from index search")
	}
}

func TestNormalizeVector(t *testing.T) {
	v := []float32{3, 4}
	NormalizeVector(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("expected unit norm, got %f", sum)
	}

	zero := []float32{0, 0}
	NormalizeVector(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector must stay zero, got %v", zero)
	}
}

func TestRetrieveCopiesMetadata(t *testing.T) {
	chunks := map[string]domain.DocumentChunk{}
	hits := make([]domain.VectorHit, 0, 3)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("c%d", i)
		chunks[id] = domain.DocumentChunk{
			ID:      id,
			Content: "text",
			Metadata: domain.ChunkMetadata{
				Section:    "Diseases",
				Subsection: "Tomato",
				Entities:   []string{"late blight"},
			},
		}
		hits = append(hits, domain.VectorHit{ChunkID: id, Score: 0.9 - float64(i)*0.1})
	}
	kb := &knowledgeFake{ready: true, hits: hits, chunks: chunks}
	r := NewVectorRetriever(&embedderFake{vector: []float32{1}}, kb, nil)

	got, err := r.Retrieve(context.Background(), "late blight in tomato", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results must keep descending score order: %+v", got)
		}
	}
	if got[0].Subsection != "Tomato" || len(got[0].Entities) != 1 {
		t.Fatalf("metadata not carried through: %+v", got[0])
	}
}
