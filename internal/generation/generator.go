// Package generation produces question/answer candidates from corpus
// fragments and threads them through the quality gate.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/extract"
	"github.com/qaforge/qa-forge/internal/llm"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
)

// Generator produces QA candidates from a source passage.
type Generator interface {
	Generate(ctx context.Context, fragment corpus.Fragment, opts Options) ([]evaluation.Candidate, error)
}

// Options holds generation parameters.
type Options struct {
	// QuestionsPerFragment is how many QA pairs to request per passage.
	QuestionsPerFragment int

	// Temperature for the generation call. Generation wants more variety
	// than judging, so the default is higher than the scorer default.
	Temperature float64

	// MaxTokens bounds the generation reply.
	MaxTokens int

	// SkipFiltering bypasses the quality gate in the pipeline.
	SkipFiltering bool
}

// DefaultOptions returns the default generation parameters.
func DefaultOptions() Options {
	return Options{
		QuestionsPerFragment: 3,
		Temperature:          0.7,
		MaxTokens:            2048,
	}
}

// LLMGenerator generates QA candidates via the completion backend.
type LLMGenerator struct {
	client llm.Client
	log    *logger.Logger
}

// NewLLMGenerator creates a generator over the given backend.
func NewLLMGenerator(client llm.Client, log *logger.Logger) *LLMGenerator {
	return &LLMGenerator{
		client: client,
		log:    log,
	}
}

// generatedPair is the wire shape of one QA pair in the model reply.
type generatedPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Generate asks the backend for QA pairs grounded in the fragment. An
// empty or invalid fragment yields no candidates and no backend call.
// Unusable replies (no JSON, bad JSON) return an empty slice rather than
// an error; backend failures propagate.
func (g *LLMGenerator) Generate(ctx context.Context, fragment corpus.Fragment, opts Options) ([]evaluation.Candidate, error) {
	if fragment.IsEmpty() {
		g.log.Debug("skipping empty fragment", "fragment", fragment.ID)
		return nil, nil
	}

	count := opts.QuestionsPerFragment
	if count < 1 {
		count = DefaultOptions().QuestionsPerFragment
	}

	llmOpts := llm.DefaultOptions()
	llmOpts.JSONMode = true
	if opts.Temperature > 0 {
		llmOpts.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		llmOpts.MaxTokens = opts.MaxTokens
	}

	reply, err := g.client.Complete(ctx, buildGenerationPrompt(fragment.Content, count), llmOpts)
	if err != nil {
		return nil, err
	}

	span, ok := extract.Extract(reply)
	if !ok {
		g.log.Warn("no JSON found in generation reply", "fragment", fragment.ID)
		return nil, nil
	}

	var pairs []generatedPair
	if err := json.Unmarshal([]byte(span), &pairs); err != nil {
		g.log.Warn("generation reply is not a QA array", "fragment", fragment.ID, "error", err)
		return nil, nil
	}

	candidates := make([]evaluation.Candidate, 0, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			continue
		}
		candidates = append(candidates, evaluation.Candidate{
			ID:         uuid.NewString(),
			Question:   strings.TrimSpace(p.Question),
			Answer:     strings.TrimSpace(p.Answer),
			Context:    fragment.Content,
			FragmentID: fragment.ID,
		})
	}

	return candidates, nil
}

func buildGenerationPrompt(passage string, count int) string {
	return fmt.Sprintf(`You are generating question/answer pairs for retrieval evaluation.

Read the passage and write %d distinct questions that the passage fully
answers, each with its answer taken from the passage. Questions must be
self-contained; answers must not use outside knowledge.

Passage:
%s

Respond with JSON only, as an array in this exact shape:
[{"question": "<question>", "answer": "<answer>"}]`, count, passage)
}
