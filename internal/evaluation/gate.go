package evaluation

import (
	"context"

	"github.com/qaforge/qa-forge/internal/llm"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
)

// Thresholds holds the per-metric minimum scores a candidate must clear.
type Thresholds struct {
	MinFaithfulness  float64
	MinRelevancy     float64
	MinAnswerability float64
}

// DefaultThresholds returns the default 0.5 minimum for every metric.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFaithfulness:  0.5,
		MinRelevancy:     0.5,
		MinAnswerability: 0.5,
	}
}

// QualityGate runs the three quality metrics against a candidate and
// turns the scores into an accept/reject decision.
type QualityGate struct {
	faithfulness  *Scorer
	relevancy     *Scorer
	answerability *Scorer
	thresholds    Thresholds
	log           *logger.Logger
}

// NewQualityGate creates a gate over the given completion backend.
func NewQualityGate(client llm.Client, thresholds Thresholds, log *logger.Logger) *QualityGate {
	return &QualityGate{
		faithfulness:  NewFaithfulness(client, log),
		relevancy:     NewRelevancy(client, log),
		answerability: NewAnswerability(client, log),
		thresholds:    thresholds,
		log:           log,
	}
}

// Evaluate runs all three metrics sequentially with the same options and
// returns the candidate annotated with a CompositeEvaluation, regardless
// of thresholds. Any scorer error propagates.
func (g *QualityGate) Evaluate(ctx context.Context, cand Candidate, opts Options) (Candidate, error) {
	faith, err := g.faithfulness.Evaluate(ctx, Input{Context: cand.Context, Answer: cand.Answer}, opts)
	if err != nil {
		return cand, err
	}

	rel, err := g.relevancy.Evaluate(ctx, Input{Question: cand.Question, Answer: cand.Answer, Context: cand.Context}, opts)
	if err != nil {
		return cand, err
	}

	ans, err := g.answerability.Evaluate(ctx, Input{Context: cand.Context, Question: cand.Question}, opts)
	if err != nil {
		return cand, err
	}

	return cand.WithEvaluation(&CompositeEvaluation{
		Faithfulness:  &faith,
		Relevancy:     &rel,
		Answerability: &ans,
	}), nil
}

// Filter evaluates candidates and keeps those whose every metric clears
// its threshold. Candidates without context are dropped unscored — they
// cannot clear faithfulness or answerability, so scoring them would
// waste three backend calls. A single scorer error aborts the whole
// call; there is no internal retry.
func (g *QualityGate) Filter(ctx context.Context, candidates []Candidate, opts Options) ([]Candidate, error) {
	kept := make([]Candidate, 0, len(candidates))

	for _, cand := range candidates {
		if !cand.HasContext() {
			g.log.Debug("dropping candidate without context", "candidate", cand.ID)
			continue
		}

		evaluated, err := g.Evaluate(ctx, cand, opts)
		if err != nil {
			return nil, err
		}

		eval := evaluated.Evaluation
		if eval.PassesThresholds(g.thresholds.MinFaithfulness, g.thresholds.MinRelevancy, g.thresholds.MinAnswerability) {
			kept = append(kept, evaluated)
		} else {
			g.log.Debug("candidate rejected",
				"candidate", cand.ID,
				"overall", eval.OverallScore())
		}
	}

	return kept, nil
}
