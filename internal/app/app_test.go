package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Port: 8080},
		Embedding: config.EmbeddingConfig{
			ProviderConfig: config.ProviderConfig{APIKey: "emb-key", BaseURL: baseURL},
		},
		LLM: config.LLMConfig{
			ProviderConfig: config.ProviderConfig{APIKey: "llm-key", BaseURL: baseURL},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func modelsServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"message":"unavailable"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_WithoutStore(t *testing.T) {
	srv := modelsServer(t, http.StatusOK)

	a, err := New(context.Background(), testConfig(srv.URL+"/v1"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.QA == nil || a.Health == nil || a.Cache == nil {
		t.Fatal("expected wired services")
	}
	if a.Identity != document.IdentityFilename {
		t.Errorf("identity = %q", a.Identity)
	}

	report := a.Health.Check(context.Background())
	if report.Status != healthuc.Healthy {
		t.Errorf("status = %q, checks = %v", report.Status, report.Checks)
	}
	if _, ok := report.Checks["database"]; ok {
		t.Error("database check must be absent without a store")
	}
	if report.Checks["embedding"] != healthuc.CheckOK || report.Checks["llm"] != healthuc.CheckOK {
		t.Errorf("unexpected checks: %v", report.Checks)
	}
}

func TestNew_ProviderDown(t *testing.T) {
	srv := modelsServer(t, http.StatusServiceUnavailable)

	a, err := New(context.Background(), testConfig(srv.URL+"/v1"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	report := a.Health.Check(context.Background())
	if report.Status != healthuc.Unhealthy {
		t.Errorf("status = %q, checks = %v", report.Status, report.Checks)
	}
}

func TestNew_ContentHashIdentity(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/v1")
	cfg.Cache.Identity = "content_hash"

	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if a.Identity != document.IdentityContentHash {
		t.Errorf("identity = %q", a.Identity)
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/v1")
	cfg.Cache.Identity = "uuid"
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil ||
		!strings.Contains(err.Error(), "cache.identity") {
		t.Errorf("expected identity error, got %v", err)
	}

	cfg = testConfig("http://127.0.0.1:1/v1")
	cfg.Database.Driver = "postgres"
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected unknown driver error")
	}

	cfg = testConfig("http://127.0.0.1:1/v1")
	bad := cfg.Chunking.Size
	cfg.Chunking.Overlap = &bad
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected chunker error")
	}
}
