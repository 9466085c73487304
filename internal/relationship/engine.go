package relationship

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/extract"
	"github.com/qaforge/qa-forge/internal/llm"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
)

// Config holds discovery settings.
type Config struct {
	// MinConfidence rejects relationships the model is unsure about.
	MinConfidence float64

	// MaxPerPair caps how many relationships one pair may yield.
	MaxPerPair int

	// AllowedTypes restricts discovery to a subset of the vocabulary.
	// Empty means all types are allowed.
	AllowedTypes []Type

	// EnableParallel fans out candidate analysis under MaxParallel.
	EnableParallel bool

	// MaxParallel bounds concurrent in-flight backend calls.
	MaxParallel int
}

// DefaultConfig returns sensible discovery defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:  0.5,
		MaxPerPair:     3,
		EnableParallel: true,
		MaxParallel:    4,
	}
}

// Engine discovers relationships between fragments by pairwise LLM
// analysis.
type Engine struct {
	client  llm.Client
	cfg     Config
	allowed map[Type]bool // nil when all types are allowed
	log     *logger.Logger
}

// NewEngine creates a discovery engine.
func NewEngine(client llm.Client, cfg Config, log *logger.Logger) *Engine {
	if cfg.MaxPerPair < 1 {
		cfg.MaxPerPair = DefaultConfig().MaxPerPair
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = DefaultConfig().MaxParallel
	}

	var allowed map[Type]bool
	if len(cfg.AllowedTypes) > 0 {
		allowed = make(map[Type]bool, len(cfg.AllowedTypes))
		for _, t := range cfg.AllowedTypes {
			allowed[t] = true
		}
	}

	return &Engine{
		client:  client,
		cfg:     cfg,
		allowed: allowed,
		log:     log,
	}
}

// replyRelationship is the wire shape of one relationship in the model
// reply.
type replyRelationship struct {
	Type          string  `json:"type"`
	Confidence    float64 `json:"confidence"`
	Explanation   string  `json:"explanation"`
	Bidirectional bool    `json:"bidirectional"`
}

// AnalyzePair classifies the relation between two fragments with one
// backend call. Reply items with unknown types, disallowed types, or
// confidence below MinConfidence are dropped; the remainder is sorted
// by confidence descending and truncated to MaxPerPair.
//
// Backend failures and cancellation propagate to the caller; this
// method does not degrade.
func (e *Engine) AnalyzePair(ctx context.Context, a, b corpus.Fragment) ([]Relationship, error) {
	reply, err := e.client.Complete(ctx, e.buildPairPrompt(a, b), llm.DefaultOptions())
	if err != nil {
		return nil, err
	}

	span, ok := extract.Extract(reply)
	if !ok {
		e.log.Warn("no JSON found in relationship reply", "source", a.ID, "target", b.ID)
		return nil, nil
	}

	var parsed struct {
		Relationships []replyRelationship `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		e.log.Warn("relationship reply is not valid JSON", "source", a.ID, "target", b.ID, "error", err)
		return nil, nil
	}

	relationships := make([]Relationship, 0, len(parsed.Relationships))
	for _, item := range parsed.Relationships {
		relType, ok := ParseType(item.Type)
		if !ok {
			e.log.Debug("rejecting unknown relationship type", "type", item.Type)
			continue
		}
		if e.allowed != nil && !e.allowed[relType] {
			continue
		}
		confidence := clamp01(item.Confidence)
		if confidence < e.cfg.MinConfidence {
			continue
		}

		relationships = append(relationships, Relationship{
			ID:            uuid.NewString(),
			SourceID:      a.ID,
			TargetID:      b.ID,
			Type:          relType,
			Confidence:    confidence,
			Explanation:   item.Explanation,
			Bidirectional: item.Bidirectional,
		})
	}

	sortByConfidence(relationships)
	if len(relationships) > e.cfg.MaxPerPair {
		relationships = relationships[:e.cfg.MaxPerPair]
	}

	return relationships, nil
}

// AnalyzeRelationships analyzes one source fragment against a candidate
// set. With EnableParallel and more than one candidate, pair analyses
// fan out under a semaphore of MaxParallel in-flight backend calls.
//
// Unlike AnalyzePair and DiscoverAll, this entry point never returns an
// error: any failure degrades to Success=false with an error message
// and whatever relationships were found before or alongside the
// failure. Callers wanting fail-fast semantics use DiscoverAll.
func (e *Engine) AnalyzeRelationships(ctx context.Context, source corpus.Fragment, candidates []corpus.Fragment) *Analysis {
	analysis := &Analysis{
		FragmentID:    source.ID,
		Relationships: []Relationship{},
		Success:       true,
	}

	if len(candidates) == 0 {
		return analysis
	}

	var found []Relationship
	var firstErr error

	if e.cfg.EnableParallel && len(candidates) > 1 {
		found, firstErr = e.fanOut(ctx, source, candidates)
	} else {
		found, firstErr = e.sequential(ctx, source, candidates)
	}

	if found != nil {
		analysis.Relationships = found
	}
	if firstErr != nil {
		analysis.Success = false
		analysis.ErrorMessage = firstErr.Error()
		e.log.Warn("relationship analysis degraded",
			"fragment", source.ID,
			"found", len(found),
			"error", firstErr)
	}

	sortByConfidence(analysis.Relationships)
	return analysis
}

// sequential analyzes candidates one at a time, keeping partial results
// when a pair fails.
func (e *Engine) sequential(ctx context.Context, source corpus.Fragment, candidates []corpus.Fragment) ([]Relationship, error) {
	var found []Relationship
	var firstErr error

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		rels, err := e.AnalyzePair(ctx, source, cand)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		found = append(found, rels...)
	}

	return found, firstErr
}

// pairOutcome carries one worker's result through the fan-in channel.
type pairOutcome struct {
	relationships []Relationship
	err           error
}

// fanOut runs one pair analysis per candidate under the concurrency
// bound. Results arrive over a channel sized to the candidate count, so
// no shared slice is written concurrently; the fan-in join below is the
// only accumulator.
func (e *Engine) fanOut(ctx context.Context, source corpus.Fragment, candidates []corpus.Fragment) ([]Relationship, error) {
	sem := semaphore.NewWeighted(int64(e.cfg.MaxParallel))
	outcomes := make(chan pairOutcome, len(candidates))

	for _, cand := range candidates {
		cand := cand
		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes <- pairOutcome{err: err}
				return
			}
			defer sem.Release(1)

			rels, err := e.AnalyzePair(ctx, source, cand)
			outcomes <- pairOutcome{relationships: rels, err: err}
		}()
	}

	var found []Relationship
	var firstErr error
	for range candidates {
		outcome := <-outcomes
		if outcome.err != nil {
			if firstErr == nil {
				firstErr = outcome.err
			}
			continue
		}
		found = append(found, outcome.relationships...)
	}

	return found, firstErr
}

// DiscoverAll analyzes every unordered fragment pair exactly once,
// sequentially, and returns the combined relationship list sorted by
// confidence descending.
//
// Unlike AnalyzeRelationships, this entry point fails fast: the first
// pair error (or cancellation) aborts the sweep and propagates.
func (e *Engine) DiscoverAll(ctx context.Context, fragments []corpus.Fragment) ([]Relationship, error) {
	seen := make(map[string]bool)
	var found []Relationship

	for i := 0; i < len(fragments); i++ {
		for j := i + 1; j < len(fragments); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if fragments[i].ID == fragments[j].ID {
				continue
			}
			key := pairKey(fragments[i].ID, fragments[j].ID)
			if seen[key] {
				continue
			}
			seen[key] = true

			rels, err := e.AnalyzePair(ctx, fragments[i], fragments[j])
			if err != nil {
				return nil, err
			}
			found = append(found, rels...)
		}
	}

	sortByConfidence(found)

	e.log.Info("full discovery complete",
		"fragments", len(fragments),
		"pairs", len(seen),
		"relationships", len(found))

	return found, nil
}

func (e *Engine) buildPairPrompt(a, b corpus.Fragment) string {
	var vocab strings.Builder
	for _, t := range AllTypes() {
		fmt.Fprintf(&vocab, "- %s: %s\n", t, typeDescriptions[t])
	}

	return fmt.Sprintf(`You are classifying the semantic relationship between two text fragments.

Relationship types:
%s
Fragment 1 (id %s):
%s

Fragment 2 (id %s):
%s

List every relationship from Fragment 1 to Fragment 2 that holds, using
only the types above. Report confidence in [0,1]. Mark bidirectional
relationships. If none hold, return an empty array.

Respond with JSON only, in this exact shape:
{"relationships": [{"type": "<type>", "confidence": <0.0-1.0>, "explanation": "<brief>", "bidirectional": <true|false>}]}`,
		vocab.String(), a.ID, a.Content, b.ID, b.Content)
}

// sortByConfidence orders relationships by confidence descending, with
// source/target/type as tiebreakers so output is reproducible.
func sortByConfidence(rels []Relationship) {
	sort.SliceStable(rels, func(i, j int) bool {
		if rels[i].Confidence != rels[j].Confidence {
			return rels[i].Confidence > rels[j].Confidence
		}
		if rels[i].SourceID != rels[j].SourceID {
			return rels[i].SourceID < rels[j].SourceID
		}
		if rels[i].TargetID != rels[j].TargetID {
			return rels[i].TargetID < rels[j].TargetID
		}
		return rels[i].Type < rels[j].Type
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
