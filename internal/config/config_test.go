package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{ProviderConfig: ProviderConfig{APIKey: "emb-key"}},
		LLM:       LLMConfig{ProviderConfig: ProviderConfig{APIKey: "llm-key"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Database(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"none needs no addrs", DatabaseConfig{Driver: DriverNone}, ""},
		{"valkey with addrs", DatabaseConfig{Driver: DriverValkey, Addrs: []string{"localhost:6379"}}, ""},
		{"redis missing addrs", DatabaseConfig{Driver: DriverRedis}, `database.addrs is required for driver "redis"`},
		{"unknown driver", DatabaseConfig{Driver: "postgres"}, `database.driver must be`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tc.db
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_Providers(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.APIKey = ""
	if err := cfg.Validate(); err == nil || err.Error() != "embedding.api_key is required" {
		t.Errorf("expected missing embedding key error, got %v", err)
	}

	cfg = validConfig()
	cfg.LLM.APIKey = ""
	if err := cfg.Validate(); err == nil || err.Error() != "llm.api_key is required" {
		t.Errorf("expected missing llm key error, got %v", err)
	}

	cfg = validConfig()
	cfg.LLM.APIVersion = "2024-02-01"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for azure mode without deployment")
	}
	cfg.LLM.Deployment = "gpt-4"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = validConfig()
	cfg.LLM.Temperature = 3
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for temperature out of range")
	}
}

func TestValidate_Chunking(t *testing.T) {
	cfg := validConfig()
	overlap := 800
	cfg.Chunking.Overlap = &overlap

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for overlap >= size")
	}
	expected := "chunking.overlap must be in [0, 800), got 800"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_CacheIdentity(t *testing.T) {
	for _, identity := range []string{"filename", "content_hash"} {
		t.Run("identity="+identity, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.Identity = identity
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for %q: %v", identity, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Cache.Identity = "uuid"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown identity")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected WriteTimeoutSec=120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != DriverNone || cfg.Database.Enabled() {
		t.Errorf("expected driver none, got %q", cfg.Database.Driver)
	}
	if cfg.Embedding.BatchSize != 200 {
		t.Errorf("expected BatchSize=200, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Chunking.Size != 800 || *cfg.Chunking.Overlap != 100 || !*cfg.Chunking.WordBoundary {
		t.Errorf("unexpected chunking defaults: %d/%d/%v",
			cfg.Chunking.Size, *cfg.Chunking.Overlap, *cfg.Chunking.WordBoundary)
	}
	if cfg.Retrieval.K != 4 {
		t.Errorf("expected K=4, got %d", cfg.Retrieval.K)
	}
	if cfg.Cache.Identity != "filename" {
		t.Errorf("expected identity filename, got %q", cfg.Cache.Identity)
	}
	if cfg.Upload.MaxSizeMB != 20 {
		t.Errorf("expected MaxSizeMB=20, got %d", cfg.Upload.MaxSizeMB)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	overlap := 0
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 60, ShutdownSec: 5},
		Chunking:  ChunkingConfig{Size: 300, Overlap: &overlap},
		Retrieval: RetrievalConfig{K: 8},
		Cache:     CacheConfig{Identity: "content_hash"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Chunking.Size != 300 || *cfg.Chunking.Overlap != 0 {
		t.Errorf("explicit chunking overridden: %d/%d", cfg.Chunking.Size, *cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.K != 8 {
		t.Errorf("expected K=8, got %d", cfg.Retrieval.K)
	}
	if cfg.Cache.Identity != "content_hash" {
		t.Errorf("expected content_hash, got %q", cfg.Cache.Identity)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("DOCQA_TEST_EMB_KEY", "from-env")

	data := []byte(`
http:
  port: 8080
embedding:
  api_key: ${DOCQA_TEST_EMB_KEY}
  base_url: ${DOCQA_TEST_UNSET_URL:-https://api.example.com/v1/}
  model: text-embedding-3-large
  dimensions: 1024
llm:
  api_key: llm-key
  api_version: "2024-02-01"
  deployment: gpt-4
  temperature: 0
cache:
  max_entries: 16
  ttl_sec: 3600
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Embedding.APIKey != "from-env" {
		t.Errorf("api_key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.BaseURL != "https://api.example.com/v1/" {
		t.Errorf("base_url default not applied: %q", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" || cfg.Embedding.Dimensions != 1024 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.LLM.Deployment != "gpt-4" || cfg.LLM.APIVersion != "2024-02-01" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Cache.MaxEntries != 16 || cfg.Cache.TTLSec != 3600 {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
