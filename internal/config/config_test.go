package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K_INITIAL", "")
	t.Setenv("RETRIEVAL_TOP_K_FINAL", "")
	t.Setenv("RETRIEVAL_ALPHA", "")
	t.Setenv("RERANK_ENABLED", "")
	t.Setenv("BATCH_MAX_WORKERS", "")
	t.Setenv("QUESTION_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.RetrievalTopKInitial != 35 {
		t.Fatalf("expected default top k initial 35, got %d", cfg.RetrievalTopKInitial)
	}
	if cfg.RetrievalTopKFinal != 5 {
		t.Fatalf("expected default top k final 5, got %d", cfg.RetrievalTopKFinal)
	}
	if cfg.RetrievalAlpha != 0.5 {
		t.Fatalf("expected default alpha 0.5, got %v", cfg.RetrievalAlpha)
	}
	if cfg.RerankEnabled {
		t.Fatal("expected rerank disabled by default")
	}
	if cfg.BatchMaxWorkers != 2 {
		t.Fatalf("expected default batch workers 2, got %d", cfg.BatchMaxWorkers)
	}
	if cfg.QuestionTimeoutSeconds != 30 {
		t.Fatalf("expected default question timeout 30, got %d", cfg.QuestionTimeoutSeconds)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K_INITIAL", "50")
	t.Setenv("RETRIEVAL_ALPHA", "0.7")
	t.Setenv("RERANK_ENABLED", "true")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.RetrievalTopKInitial != 50 {
		t.Fatalf("expected top k initial 50, got %d", cfg.RetrievalTopKInitial)
	}
	if cfg.RetrievalAlpha != 0.7 {
		t.Fatalf("expected alpha 0.7, got %v", cfg.RetrievalAlpha)
	}
	if !cfg.RerankEnabled {
		t.Fatal("expected rerank enabled")
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("RETRIEVAL_ALPHA", "not-a-number")
	t.Setenv("BATCH_MAX_WORKERS", "many")
	t.Setenv("RERANK_ENABLED", "yep")

	cfg := Load()
	if cfg.RetrievalAlpha != 0.5 {
		t.Fatalf("expected fallback alpha 0.5, got %v", cfg.RetrievalAlpha)
	}
	if cfg.BatchMaxWorkers != 2 {
		t.Fatalf("expected fallback workers 2, got %d", cfg.BatchMaxWorkers)
	}
	if cfg.RerankEnabled {
		t.Fatal("expected fallback rerank disabled")
	}
}
