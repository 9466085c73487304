// Package evaluation scores question/answer candidates with LLM-judged
// quality metrics and gates them on per-metric thresholds.
package evaluation

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PassThreshold is the score at or above which a single metric result
// counts as passed.
const PassThreshold = 0.5

// Metric names.
const (
	MetricFaithfulness  = "faithfulness"
	MetricRelevancy     = "relevancy"
	MetricAnswerability = "answerability"
)

// Details is an insertion-ordered map of diagnostic fields attached to a
// metric result.
type Details = *orderedmap.OrderedMap[string, any]

// NewDetails creates an empty details map.
func NewDetails() Details {
	return orderedmap.New[string, any]()
}

// MetricResult is the outcome of one scorer invocation. Results are
// immutable once created.
type MetricResult struct {
	MetricName string  `json:"metric_name"`
	Score      float64 `json:"score"`
	Details    Details `json:"details,omitempty"`
}

// NewResult creates a result with the score clamped to [0, 1].
func NewResult(name string, score float64, details Details) MetricResult {
	if details == nil {
		details = NewDetails()
	}
	return MetricResult{
		MetricName: name,
		Score:      clamp01(score),
		Details:    details,
	}
}

// FailedResult creates a zero-score result carrying a diagnostic reason.
// This is the soft-failure shape: a reply was unusable (or an input was
// blank) but the caller gets a result, not an error.
func FailedResult(name, reason string) MetricResult {
	details := NewDetails()
	details.Set("reason", reason)
	return MetricResult{
		MetricName: name,
		Score:      0,
		Details:    details,
	}
}

// IsPassed reports whether the score clears the pass threshold.
func (r MetricResult) IsPassed() bool {
	return r.Score >= PassThreshold
}

// FailureReason returns the diagnostic reason for a soft failure, or "".
func (r MetricResult) FailureReason() string {
	if r.Details == nil {
		return ""
	}
	if v, ok := r.Details.Get("reason"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CompositeEvaluation aggregates the three metric results for one
// candidate. Any slot may be nil when that metric did not run.
type CompositeEvaluation struct {
	Faithfulness  *MetricResult `json:"faithfulness,omitempty"`
	Relevancy     *MetricResult `json:"relevancy,omitempty"`
	Answerability *MetricResult `json:"answerability,omitempty"`
}

// OverallScore is the mean across all three metric slots. An absent
// metric contributes 0 and stays in the denominator, so running only a
// subset of metrics understates the composite. That arithmetic is
// deliberate and relied upon by callers comparing runs.
func (c *CompositeEvaluation) OverallScore() float64 {
	var sum float64
	for _, r := range []*MetricResult{c.Faithfulness, c.Relevancy, c.Answerability} {
		if r != nil {
			sum += r.Score
		}
	}
	return sum / 3
}

// PassesThresholds reports whether every metric clears its minimum. An
// absent metric scores 0 and therefore fails any positive minimum.
func (c *CompositeEvaluation) PassesThresholds(minFaithfulness, minRelevancy, minAnswerability float64) bool {
	return scoreOrZero(c.Faithfulness) >= minFaithfulness &&
		scoreOrZero(c.Relevancy) >= minRelevancy &&
		scoreOrZero(c.Answerability) >= minAnswerability
}

func scoreOrZero(r *MetricResult) float64 {
	if r == nil {
		return 0
	}
	return r.Score
}

// Candidate is a question/answer pair under evaluation, with the source
// context it was generated from. Candidates are immutable: annotation
// returns a new value.
type Candidate struct {
	ID         string               `json:"id"`
	Question   string               `json:"question"`
	Answer     string               `json:"answer"`
	Context    string               `json:"context"`
	FragmentID string               `json:"fragment_id,omitempty"`
	Evaluation *CompositeEvaluation `json:"evaluation,omitempty"`
}

// WithEvaluation returns a copy of the candidate carrying eval.
func (c Candidate) WithEvaluation(eval *CompositeEvaluation) Candidate {
	c.Evaluation = eval
	return c
}

// HasContext reports whether the candidate carries usable context.
func (c Candidate) HasContext() bool {
	return strings.TrimSpace(c.Context) != ""
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
