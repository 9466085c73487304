// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// LLM backend configuration
	LLM LLMConfig `yaml:"llm"`

	// Evaluation configuration
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Generation configuration
	Generation GenerationConfig `yaml:"generation"`

	// Relationship discovery configuration
	Relationships RelationshipConfig `yaml:"relationships"`

	// Qdrant fragment source configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Store configuration
	Store StoreConfig `yaml:"store"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// LLMConfig holds completion backend settings.
type LLMConfig struct {
	BaseURL        string        `envconfig:"QAFORGE_LLM_URL" yaml:"base_url"`
	Model          string        `envconfig:"QAFORGE_LLM_MODEL" yaml:"model"`
	Timeout        time.Duration `envconfig:"QAFORGE_LLM_TIMEOUT" yaml:"timeout"`
	CallsPerSecond float64       `envconfig:"QAFORGE_LLM_RATE" yaml:"calls_per_second"` // 0 = unlimited
	Burst          int           `envconfig:"QAFORGE_LLM_BURST" yaml:"burst"`
}

// EvaluationConfig holds quality gate settings.
type EvaluationConfig struct {
	MinFaithfulness  float64 `envconfig:"QAFORGE_MIN_FAITHFULNESS" yaml:"min_faithfulness"`
	MinRelevancy     float64 `envconfig:"QAFORGE_MIN_RELEVANCY" yaml:"min_relevancy"`
	MinAnswerability float64 `envconfig:"QAFORGE_MIN_ANSWERABILITY" yaml:"min_answerability"`
}

// GenerationConfig holds candidate generation settings.
type GenerationConfig struct {
	QuestionsPerFragment int     `envconfig:"QAFORGE_QUESTIONS_PER_FRAGMENT" yaml:"questions_per_fragment"`
	Temperature          float64 `envconfig:"QAFORGE_GEN_TEMPERATURE" yaml:"temperature"`
	MaxTokens            int     `envconfig:"QAFORGE_GEN_MAX_TOKENS" yaml:"max_tokens"`
	SkipFiltering        bool    `envconfig:"QAFORGE_SKIP_FILTERING" yaml:"skip_filtering"`
}

// RelationshipConfig holds relationship discovery settings.
type RelationshipConfig struct {
	MinConfidence  float64 `envconfig:"QAFORGE_REL_MIN_CONFIDENCE" yaml:"min_confidence"`
	MaxPerPair     int     `envconfig:"QAFORGE_REL_MAX_PER_PAIR" yaml:"max_per_pair"`
	EnableParallel bool    `envconfig:"QAFORGE_REL_PARALLEL" yaml:"enable_parallel"`
	MaxParallel    int     `envconfig:"QAFORGE_REL_MAX_PARALLEL" yaml:"max_parallel"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host   string `envconfig:"QAFORGE_QDRANT_HOST" yaml:"host"`
	Port   int    `envconfig:"QAFORGE_QDRANT_PORT" yaml:"port"`
	APIKey string `envconfig:"QAFORGE_QDRANT_API_KEY" yaml:"api_key"`
	UseTLS bool   `envconfig:"QAFORGE_QDRANT_TLS" yaml:"use_tls"`
}

// StoreConfig holds result persistence settings.
type StoreConfig struct {
	Type     string `envconfig:"QAFORGE_STORE_TYPE" yaml:"type"`
	RedisURL string `envconfig:"QAFORGE_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"QAFORGE_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"QAFORGE_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"QAFORGE_KAFKA_GROUP" yaml:"kafka_group"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"QAFORGE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"QAFORGE_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.LLM = LLMConfig{
		BaseURL: "http://localhost:11434/api",
		Model:   "llama3.1",
		Timeout: 2 * time.Minute,
		Burst:   1,
	}

	cfg.Evaluation = EvaluationConfig{
		MinFaithfulness:  0.5,
		MinRelevancy:     0.5,
		MinAnswerability: 0.5,
	}

	cfg.Generation = GenerationConfig{
		QuestionsPerFragment: 3,
		Temperature:          0.7,
		MaxTokens:            2048,
	}

	cfg.Relationships = RelationshipConfig{
		MinConfidence:  0.5,
		MaxPerPair:     3,
		EnableParallel: true,
		MaxParallel:    4,
	}

	cfg.Qdrant = QdrantConfig{
		Host: "localhost",
		Port: 6334,
	}

	cfg.Store = StoreConfig{
		Type:     "memory",
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// LLM validation
	if c.LLM.BaseURL == "" {
		errs = append(errs, "llm base_url is required")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm model is required")
	}
	if c.LLM.CallsPerSecond < 0 {
		errs = append(errs, "llm calls_per_second must not be negative")
	}

	// Evaluation validation
	for name, v := range map[string]float64{
		"min_faithfulness":  c.Evaluation.MinFaithfulness,
		"min_relevancy":     c.Evaluation.MinRelevancy,
		"min_answerability": c.Evaluation.MinAnswerability,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}

	// Generation validation
	if c.Generation.QuestionsPerFragment < 1 {
		errs = append(errs, "questions_per_fragment must be positive")
	}
	if c.Generation.MaxTokens < 1 {
		errs = append(errs, "generation max_tokens must be positive")
	}

	// Relationship validation
	if c.Relationships.MinConfidence < 0 || c.Relationships.MinConfidence > 1 {
		errs = append(errs, "relationship min_confidence must be between 0 and 1")
	}
	if c.Relationships.MaxPerPair < 1 {
		errs = append(errs, "relationship max_per_pair must be positive")
	}
	if c.Relationships.EnableParallel && c.Relationships.MaxParallel < 1 {
		errs = append(errs, "relationship max_parallel must be positive when parallel analysis is enabled")
	}

	// Qdrant validation
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		errs = append(errs, "qdrant port must be between 1 and 65535")
	}

	// Store validation
	validStoreTypes := map[string]bool{"memory": true, "redis": true}
	if !validStoreTypes[c.Store.Type] {
		errs = append(errs, fmt.Sprintf("invalid store type: %s (must be memory or redis)", c.Store.Type))
	}
	if c.Store.Type == "redis" && c.Store.RedisURL == "" {
		errs = append(errs, "redis_url is required for the redis store")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}
	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers is required for the kafka bus")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
