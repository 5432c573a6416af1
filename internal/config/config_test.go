package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.SurrealDBURL != "ws://localhost:8000/rpc" {
		t.Errorf("SurrealDBURL = %q", cfg.SurrealDBURL)
	}
	if cfg.EmbeddingDimension != 384 {
		t.Errorf("EmbeddingDimension = %d, want 384", cfg.EmbeddingDimension)
	}
	if cfg.MaxAmountWon != 10_000_000_000 {
		t.Errorf("MaxAmountWon = %d", cfg.MaxAmountWon)
	}
	if cfg.DegradedThreshold != 0.5 {
		t.Errorf("DegradedThreshold = %v", cfg.DegradedThreshold)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("YAKGWAN_QUERY_DEPTH", "3")
	t.Setenv("YAKGWAN_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.QueryDepth != 3 {
		t.Errorf("QueryDepth = %d, want 3", cfg.QueryDepth)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("llm_provider: openai\nquery_depth: 4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(Load(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want openai", cfg.LLMProvider)
	}
	if cfg.QueryDepth != 4 {
		t.Errorf("QueryDepth = %d, want 4", cfg.QueryDepth)
	}
	// Fields absent from the file keep their env-derived values.
	if cfg.EmbeddingModel != Load().EmbeddingModel {
		t.Errorf("EmbeddingModel overridden unexpectedly: %q", cfg.EmbeddingModel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
