package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qaforge/qa-forge/internal/bus"
	"github.com/qaforge/qa-forge/internal/config"
	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/llm"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
	"github.com/qaforge/qa-forge/internal/qdrant"
	"github.com/qaforge/qa-forge/internal/store"
)

// app bundles the wired dependencies shared by the subcommands.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	client llm.Client
	store  store.Store
	bus    bus.Bus
}

// newApp loads configuration and wires the backend clients.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	var client llm.Client = llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if cfg.LLM.CallsPerSecond > 0 {
		client = llm.RateLimit(client, cfg.LLM.CallsPerSecond, cfg.LLM.Burst)
	}

	resultStore, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	eventBus, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		client: client,
		store:  resultStore,
		bus:    eventBus,
	}, nil
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "redis":
		return store.NewRedisStore(cfg.Store.RedisURL)
	default:
		return store.NewMemoryStore(), nil
	}
}

// close releases backend connections.
func (a *app) close() {
	if err := a.bus.Close(); err != nil {
		a.log.Warn("closing bus", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
	if err := a.client.Close(); err != nil {
		a.log.Warn("closing llm client", "error", err)
	}
}

// thresholds maps the evaluation config onto gate thresholds.
func (a *app) thresholds() evaluation.Thresholds {
	return evaluation.Thresholds{
		MinFaithfulness:  a.cfg.Evaluation.MinFaithfulness,
		MinRelevancy:     a.cfg.Evaluation.MinRelevancy,
		MinAnswerability: a.cfg.Evaluation.MinAnswerability,
	}
}

// loadFragments reads fragments from a JSONL file or a Qdrant
// collection, exactly one of which must be given.
func (a *app) loadFragments(ctx context.Context, inputPath, collection string) ([]corpus.Fragment, error) {
	switch {
	case inputPath != "" && collection != "":
		return nil, fmt.Errorf("--input and --collection are mutually exclusive")

	case inputPath != "":
		return corpus.LoadJSONL(inputPath)

	case collection != "":
		qc, err := qdrant.NewClient(qdrant.ClientConfig{
			Host:   a.cfg.Qdrant.Host,
			Port:   a.cfg.Qdrant.Port,
			APIKey: a.cfg.Qdrant.APIKey,
			UseTLS: a.cfg.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, err
		}
		defer qc.Close()
		return qc.ScrollFragments(ctx, collection)

	default:
		return nil, fmt.Errorf("either --input or --collection is required")
	}
}

// writeJSON writes a value as indented JSON to a file, or stdout when
// path is empty.
func writeJSON(path string, v any) error {
	out := os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
