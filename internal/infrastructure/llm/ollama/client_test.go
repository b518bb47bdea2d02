package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateSendsZeroTemperatureAndTokenCap(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "  Spray at 2 ml.  "})
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "llama3", "nomic-embed-text", nil))
	answer, err := gen.Generate(context.Background(), "prompt", 150)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Spray at 2 ml." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}

	if got["model"] != "llama3" {
		t.Fatalf("unexpected model: %v", got["model"])
	}
	if got["stream"] != false {
		t.Fatalf("streaming must be disabled")
	}
	options, ok := got["options"].(map[string]any)
	if !ok {
		t.Fatalf("missing options: %v", got)
	}
	if options["temperature"] != float64(0) {
		t.Fatalf("temperature must be zero, got %v", options["temperature"])
	}
	if options["num_predict"] != float64(150) {
		t.Fatalf("expected num_predict=150, got %v", options["num_predict"])
	}
}

func TestGenerateOmitsTokenCapWhenUnset(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "llama3", "nomic-embed-text", nil))
	if _, err := gen.Generate(context.Background(), "prompt", 0); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	options := got["options"].(map[string]any)
	if _, present := options["num_predict"]; present {
		t.Fatalf("num_predict must be omitted for zero cap")
	}
}

func TestEmbedReturnsVectorsPerText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "llama3", "nomic-embed-text", nil))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.1}}})
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "llama3", "nomic-embed-text", nil))
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestGenerateServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "llama3", "nomic-embed-text", nil))
	_, err := gen.Generate(context.Background(), "prompt", 10)
	if err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestEmbedQueryEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "llama3", "nomic-embed-text", nil))
	if _, err := embedder.EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatalf("expected error for empty embedding result")
	}
}
