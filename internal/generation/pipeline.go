package generation

import (
	"context"

	"github.com/qaforge/qa-forge/internal/bus"
	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
)

// PipelineResult summarizes one pipeline run. Immutable, created once
// per run.
type PipelineResult struct {
	// Candidates are the surviving (or, with SkipFiltering, all
	// generated) candidates.
	Candidates []evaluation.Candidate `json:"candidates"`

	// GeneratedCount is how many candidates generation produced.
	GeneratedCount int `json:"generated_count"`

	// FilteredCount is how many candidates survived the gate.
	FilteredCount int `json:"filtered_count"`
}

// FilteredOutCount is how many candidates the gate rejected.
func (r *PipelineResult) FilteredOutCount() int {
	return r.GeneratedCount - r.FilteredCount
}

// PassRate is the fraction of generated candidates that survived, 0 when
// nothing was generated.
func (r *PipelineResult) PassRate() float64 {
	if r.GeneratedCount == 0 {
		return 0
	}
	return float64(r.FilteredCount) / float64(r.GeneratedCount)
}

// Pipeline generates candidates and threads them through the quality
// gate, tracking counts.
type Pipeline struct {
	generator Generator
	gate      *evaluation.QualityGate
	bus       bus.Bus
	log       *logger.Logger
}

// NewPipeline creates a pipeline. eventBus is optional - if nil, event
// publishing is disabled.
func NewPipeline(generator Generator, gate *evaluation.QualityGate, log *logger.Logger, eventBus bus.Bus) *Pipeline {
	return &Pipeline{
		generator: generator,
		gate:      gate,
		bus:       eventBus,
		log:       log,
	}
}

// Execute runs generation, then the gate, for one fragment's worth of
// context. Zero generated candidates short-circuit to an empty result
// without invoking the gate. Generator and gate errors propagate.
func (p *Pipeline) Execute(ctx context.Context, fragment corpus.Fragment, opts Options) (*PipelineResult, error) {
	generated, err := p.generator.Generate(ctx, fragment, opts)
	if err != nil {
		return nil, err
	}

	if len(generated) == 0 {
		p.log.Debug("nothing generated", "fragment", fragment.ID)
		return &PipelineResult{}, nil
	}

	kept := generated
	if !opts.SkipFiltering {
		kept, err = p.gate.Filter(ctx, generated, evaluation.DefaultOptions())
		if err != nil {
			return nil, err
		}
	}

	result := &PipelineResult{
		Candidates:     kept,
		GeneratedCount: len(generated),
		FilteredCount:  len(kept),
	}

	p.publishResult(ctx, fragment.ID, generated, result)

	p.log.Info("pipeline run complete",
		"fragment", fragment.ID,
		"generated", result.GeneratedCount,
		"kept", result.FilteredCount)

	return result, nil
}

// ExecuteBatch processes fragments strictly sequentially: each run
// completes before the next begins, and cancellation is checked between
// runs. Output order matches input order.
func (p *Pipeline) ExecuteBatch(ctx context.Context, fragments []corpus.Fragment, opts Options) ([]*PipelineResult, error) {
	results := make([]*PipelineResult, 0, len(fragments))

	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := p.Execute(ctx, fragment, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// ExecuteFromFragment validates the fragment before running it through
// the pipeline.
func (p *Pipeline) ExecuteFromFragment(ctx context.Context, fragment corpus.Fragment, opts Options) (*PipelineResult, error) {
	if err := fragment.Validate(); err != nil {
		return nil, err
	}
	return p.Execute(ctx, fragment, opts)
}

// publishResult emits accept/reject events and a run summary. Publishing
// never affects pipeline control flow.
func (p *Pipeline) publishResult(ctx context.Context, fragmentID string, generated []evaluation.Candidate, result *PipelineResult) {
	if p.bus == nil {
		return
	}

	accepted := make(map[string]bool, len(result.Candidates))
	for _, c := range result.Candidates {
		accepted[c.ID] = true
		p.publish(ctx, bus.TopicCandidateAccepted, c)
	}
	for _, c := range generated {
		if !accepted[c.ID] {
			p.publish(ctx, bus.TopicCandidateRejected, c)
		}
	}

	p.publish(ctx, bus.TopicPipelineCompleted, map[string]any{
		"fragment_id":     fragmentID,
		"generated_count": result.GeneratedCount,
		"filtered_count":  result.FilteredCount,
		"pass_rate":       result.PassRate(),
	})
}

func (p *Pipeline) publish(ctx context.Context, topic string, payload any) {
	if err := p.bus.Publish(ctx, topic, bus.NewEvent(topic, "generation-pipeline", payload)); err != nil {
		p.log.Warn("event publish failed", "topic", topic, "error", err)
	}
}
