package evaluation

import (
	"context"
	"encoding/json"

	"github.com/qaforge/qa-forge/internal/extract"
	"github.com/qaforge/qa-forge/internal/llm"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
)

// Input carries the texts a scorer judges. Which fields are required
// depends on the metric variant.
type Input struct {
	Question string
	Answer   string
	Context  string
}

// Options holds per-call scoring parameters, shared by all metrics in a
// gate pass.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions returns the default scoring parameters.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.1,
		MaxTokens:   1024,
	}
}

func (o Options) llmOptions() llm.Options {
	base := llm.DefaultOptions()
	if o.Temperature > 0 {
		base.Temperature = o.Temperature
	}
	if o.MaxTokens > 0 {
		base.MaxTokens = o.MaxTokens
	}
	return base
}

// variant parameterizes the shared scoring engine: each metric differs
// only in required inputs, prompt wording, and reply fields.
type variant struct {
	name string

	// validate returns a failure reason when a required input is blank,
	// or "" when the input is usable.
	validate func(Input) string

	// buildPrompt produces the deterministic judgment prompt.
	buildPrompt func(Input) string

	// mapFields copies variant-specific reply fields into the details map.
	mapFields func(reply map[string]any, details Details)
}

// Scorer evaluates one quality metric by delegating to the completion
// backend and tolerantly parsing its reply.
type Scorer struct {
	client llm.Client
	v      variant
	log    *logger.Logger
}

func newScorer(client llm.Client, v variant, log *logger.Logger) *Scorer {
	return &Scorer{
		client: client,
		v:      v,
		log:    log.WithMetric(v.name),
	}
}

// Name returns the metric name.
func (s *Scorer) Name() string {
	return s.v.name
}

// Evaluate scores one input.
//
// Failure contract: a blank required input or an unusable reply yields a
// zero-score result with a diagnostic reason and a nil error; only a
// completion backend failure or cancellation returns an error.
func (s *Scorer) Evaluate(ctx context.Context, in Input, opts Options) (MetricResult, error) {
	// Blank input short-circuits before the backend is touched: the
	// judgment is already known and a completion call costs real money.
	if reason := s.v.validate(in); reason != "" {
		s.log.Debug("skipping evaluation", "reason", reason)
		return FailedResult(s.v.name, reason), nil
	}

	reply, err := s.client.Complete(ctx, s.v.buildPrompt(in), opts.llmOptions())
	if err != nil {
		return MetricResult{}, err
	}

	span, ok := extract.Extract(reply)
	if !ok {
		s.log.Warn("no JSON found in model reply")
		return FailedResult(s.v.name, "failed to extract JSON from model reply"), nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		s.log.Warn("model reply is not valid JSON", "error", err)
		return FailedResult(s.v.name, "failed to parse model reply: "+err.Error()), nil
	}

	details := NewDetails()
	s.v.mapFields(fields, details)

	return NewResult(s.v.name, floatField(fields, "score"), details), nil
}

// EvaluateBatch scores inputs sequentially, preserving input order.
// Cancellation is checked before each item so no further backend calls
// are issued once the context is done.
func (s *Scorer) EvaluateBatch(ctx context.Context, ins []Input, opts Options) ([]MetricResult, error) {
	results := make([]MetricResult, 0, len(ins))

	for _, in := range ins {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := s.Evaluate(ctx, in, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// NewFaithfulness creates the grounding metric: is the answer supported
// by the context?
func NewFaithfulness(client llm.Client, log *logger.Logger) *Scorer {
	return newScorer(client, faithfulnessVariant(), log)
}

// NewRelevancy creates the relevance metric: does the answer address the
// question?
func NewRelevancy(client llm.Client, log *logger.Logger) *Scorer {
	return newScorer(client, relevancyVariant(), log)
}

// NewAnswerability creates the sufficiency metric: can the question be
// answered from the context alone?
func NewAnswerability(client llm.Client, log *logger.Logger) *Scorer {
	return newScorer(client, answerabilityVariant(), log)
}

// Reply field readers. Missing or mistyped fields fall back to zero
// values rather than failing the whole result.

func floatField(fields map[string]any, key string) float64 {
	if v, ok := fields[key].(float64); ok {
		return v
	}
	return 0
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func boolField(fields map[string]any, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}
