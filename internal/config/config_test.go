package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q", cfg.APIPort)
	}
	if cfg.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold = %f", cfg.SimilarityThreshold)
	}
	if cfg.TopK != 2 {
		t.Errorf("TopK = %d", cfg.TopK)
	}
	if cfg.MaxAnswerTokens != 150 {
		t.Errorf("MaxAnswerTokens = %d", cfg.MaxAnswerTokens)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("RETRIEVAL_TOP_K", "3")
	t.Setenv("CACHE_BACKEND", "postgres")

	cfg := Load()
	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("SimilarityThreshold = %f", cfg.SimilarityThreshold)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %d", cfg.TopK)
	}
	if cfg.CacheBackend != "postgres" {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "not-a-number")
	t.Setenv("RETRIEVAL_TOP_K", "two")

	cfg := Load()
	if cfg.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold = %f", cfg.SimilarityThreshold)
	}
	if cfg.TopK != 2 {
		t.Errorf("TopK = %d", cfg.TopK)
	}
}
