package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.MaxTokens != 4000 {
		t.Fatalf("MaxTokens = %d, want 4000", cfg.Model.MaxTokens)
	}
	if cfg.Model.Temperature != 0.1 {
		t.Fatalf("Temperature = %v, want 0.1", cfg.Model.Temperature)
	}
	if cfg.Model.HistoryWindow != 20 {
		t.Fatalf("HistoryWindow = %d, want 20", cfg.Model.HistoryWindow)
	}
	if cfg.Model.Name == "" {
		t.Fatal("model name default missing")
	}
	if len(cfg.ToolServers) != 0 {
		t.Fatalf("ToolServers = %#v", cfg.ToolServers)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docther.yaml")
	content := `
model:
  anthropic_api_key: file-key
  name: claude-3-haiku-20240307
  max_tokens: 1024
  history_window: 6
database_url: postgres://localhost/docther
tool_servers:
  - calcserver
  - python3 pubmed_server.py
transcription:
  language: en
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.AnthropicAPIKey != "file-key" {
		t.Fatalf("AnthropicAPIKey = %q", cfg.Model.AnthropicAPIKey)
	}
	if cfg.Model.Name != "claude-3-haiku-20240307" || cfg.Model.MaxTokens != 1024 {
		t.Fatalf("model = %#v", cfg.Model)
	}
	if cfg.Model.HistoryWindow != 6 {
		t.Fatalf("HistoryWindow = %d", cfg.Model.HistoryWindow)
	}
	if cfg.DatabaseURL != "postgres://localhost/docther" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if len(cfg.ToolServers) != 2 || cfg.ToolServers[1] != "python3 pubmed_server.py" {
		t.Fatalf("ToolServers = %#v", cfg.ToolServers)
	}
	if cfg.Transcription.Language != "en" {
		t.Fatalf("Transcription = %#v", cfg.Transcription)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(cwd)

	t.Setenv("DOCTHER_DATABASE_URL", "postgres://env/docther")
	t.Setenv("DOCTHER_MODEL_MAX_TOKENS", "2048")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/docther" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Model.MaxTokens != 2048 {
		t.Fatalf("MaxTokens = %d", cfg.Model.MaxTokens)
	}
	if cfg.Model.AnthropicAPIKey != "env-anthropic" {
		t.Fatalf("AnthropicAPIKey = %q", cfg.Model.AnthropicAPIKey)
	}
	if cfg.Transcription.OpenAIAPIKey != "env-openai" {
		t.Fatalf("OpenAIAPIKey = %q", cfg.Transcription.OpenAIAPIKey)
	}
}
