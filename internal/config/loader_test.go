package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// 指定不存在的搜索目录，走纯默认值
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("expected default cache type memory, got %s", cfg.Cache.Type)
	}
	if cfg.Cache.TTL != 3600 {
		t.Errorf("expected default ttl 3600, got %d", cfg.Cache.TTL)
	}
	if cfg.Vector.SimilarityThreshold != 0.8 {
		t.Errorf("expected default threshold 0.8, got %.2f", cfg.Vector.SimilarityThreshold)
	}
	if cfg.Vector.TopK != 3 {
		t.Errorf("expected default top_k 3, got %d", cfg.Vector.TopK)
	}
	if cfg.QA.MaxVersions != 10 {
		t.Errorf("expected default max_versions 10, got %d", cfg.QA.MaxVersions)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9090
  debug: true
cache:
  type: redis
  ttl: 600
  redis:
    host: 127.0.0.1
    port: 6379
vector:
  similarity_threshold: 0.9
  top_k: 5
qa:
  max_versions: 5
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Server.Debug {
		t.Error("expected debug enabled")
	}
	if cfg.Cache.Type != "redis" || cfg.Cache.Redis.Host != "127.0.0.1" {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Vector.SimilarityThreshold != 0.9 || cfg.Vector.TopK != 5 {
		t.Errorf("unexpected vector config: %+v", cfg.Vector)
	}
	if cfg.QA.MaxVersions != 5 {
		t.Errorf("expected max_versions 5, got %d", cfg.QA.MaxVersions)
	}
}

func TestLoadEnvVarExpansion(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
llm:
  api_key: ${TEST_QABOT_API_KEY}
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("TEST_QABOT_API_KEY", "sk-test-value")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test-value" {
		t.Errorf("expected env var expanded, got %q", cfg.LLM.APIKey)
	}
}
