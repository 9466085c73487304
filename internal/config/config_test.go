package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	// Set environment variables
	os.Setenv("QAFORGE_LLM_MODEL", "mistral")
	os.Setenv("QAFORGE_LOG_LEVEL", "debug")
	os.Setenv("QAFORGE_MIN_FAITHFULNESS", "0.7")
	defer func() {
		os.Unsetenv("QAFORGE_LLM_MODEL")
		os.Unsetenv("QAFORGE_LOG_LEVEL")
		os.Unsetenv("QAFORGE_MIN_FAITHFULNESS")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.LLM.Model != "mistral" {
		t.Errorf("LLM.Model = %s, want mistral", cfg.LLM.Model)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Evaluation.MinFaithfulness != 0.7 {
		t.Errorf("Evaluation.MinFaithfulness = %v, want 0.7", cfg.Evaluation.MinFaithfulness)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Evaluation.MinFaithfulness != 0.5 {
		t.Errorf("MinFaithfulness = %v, want 0.5", cfg.Evaluation.MinFaithfulness)
	}
	if cfg.Generation.QuestionsPerFragment != 3 {
		t.Errorf("QuestionsPerFragment = %d, want 3", cfg.Generation.QuestionsPerFragment)
	}
	if cfg.Relationships.MaxParallel != 4 {
		t.Errorf("Relationships.MaxParallel = %d, want 4", cfg.Relationships.MaxParallel)
	}
	if cfg.Bus.Type != "memory" {
		t.Errorf("Bus.Type = %s, want memory", cfg.Bus.Type)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Store.Type = %s, want memory", cfg.Store.Type)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
llm:
  model: qwen2.5
  base_url: "http://llm-host:11434/api"
log:
  level: warn
  format: json
relationships:
  min_confidence: 0.8
  max_per_pair: 1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.Model != "qwen2.5" {
		t.Errorf("LLM.Model = %s, want qwen2.5", cfg.LLM.Model)
	}

	if cfg.LLM.BaseURL != "http://llm-host:11434/api" {
		t.Errorf("LLM.BaseURL = %s", cfg.LLM.BaseURL)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if cfg.Relationships.MinConfidence != 0.8 {
		t.Errorf("Relationships.MinConfidence = %v, want 0.8", cfg.Relationships.MinConfidence)
	}

	if cfg.Relationships.MaxPerPair != 1 {
		t.Errorf("Relationships.MaxPerPair = %d, want 1", cfg.Relationships.MaxPerPair)
	}

	// Untouched sections keep their defaults
	if cfg.Generation.MaxTokens != 2048 {
		t.Errorf("Generation.MaxTokens = %d, want default 2048", cfg.Generation.MaxTokens)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing model",
			modify: func(c *Config) {
				c.LLM.Model = ""
			},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			modify: func(c *Config) {
				c.Evaluation.MinRelevancy = 1.5
			},
			wantErr: true,
		},
		{
			name: "zero questions per fragment",
			modify: func(c *Config) {
				c.Generation.QuestionsPerFragment = 0
			},
			wantErr: true,
		},
		{
			name: "invalid store type",
			modify: func(c *Config) {
				c.Store.Type = "postgres"
			},
			wantErr: true,
		},
		{
			name: "kafka bus without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = ""
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "verbose"
			},
			wantErr: true,
		},
		{
			name: "parallel without workers",
			modify: func(c *Config) {
				c.Relationships.EnableParallel = true
				c.Relationships.MaxParallel = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
