package relationship

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/llm"
	"github.com/qaforge/qa-forge/internal/pkg/logger"
)

var testLog = logger.New("error", "text")

// scriptedResponse is one mock backend turn: either text or an error.
type scriptedResponse struct {
	text string
	err  error
}

// mockClient replays scripted responses in call order. When the script
// runs out, fallback is returned. It also tracks the maximum number of
// concurrently in-flight calls.
type mockClient struct {
	mu       sync.Mutex
	script   []scriptedResponse
	fallback string
	delay    time.Duration

	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (m *mockClient) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.calls.Add(1)

	cur := m.inflight.Add(1)
	for {
		prev := m.maxInflight.Load()
		if cur <= prev || m.maxInflight.CompareAndSwap(prev, cur) {
			break
		}
	}
	defer m.inflight.Add(-1)

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next.text, next.err
	}
	return m.fallback, nil
}

func (m *mockClient) Stream(ctx context.Context, prompt string, opts llm.Options, fn func(string) error) error {
	reply, err := m.Complete(ctx, prompt, opts)
	if err != nil {
		return err
	}
	return fn(reply)
}

func (m *mockClient) Close() error { return nil }

func frag(id string) corpus.Fragment {
	return corpus.Fragment{ID: id, Content: "content of " + id}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Type
		ok    bool
	}{
		{"exact", "same_topic", TypeSameTopic, true},
		{"camel case", "SameTopic", TypeSameTopic, true},
		{"upper snake", "FOLLOW_UP", TypeFollowUp, true},
		{"hyphenated", "example-of", TypeExampleOf, true},
		{"spaced", "same topic", TypeSameTopic, true},
		{"unknown", "friend_of", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseType(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseType(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllTypes_TenClosedVariants(t *testing.T) {
	if got := len(AllTypes()); got != 10 {
		t.Errorf("len(AllTypes()) = %d, want 10", got)
	}
	for _, typ := range AllTypes() {
		if _, ok := typeDescriptions[typ]; !ok {
			t.Errorf("type %s has no description", typ)
		}
	}
}

func TestEngine_AnalyzePair_ConfidenceFilter(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [
		{"type": "SameTopic", "confidence": 0.6},
		{"type": "Contradicts", "confidence": 0.3}
	]}`}
	engine := NewEngine(client, Config{MinConfidence: 0.5, MaxPerPair: 3}, testLog)

	rels, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if err != nil {
		t.Fatalf("AnalyzePair() error = %v", err)
	}

	if len(rels) != 1 {
		t.Fatalf("got %d relationships, want 1", len(rels))
	}
	if rels[0].Type != TypeSameTopic {
		t.Errorf("Type = %v, want %v", rels[0].Type, TypeSameTopic)
	}
	if rels[0].SourceID != "a" || rels[0].TargetID != "b" {
		t.Errorf("endpoints = %s -> %s", rels[0].SourceID, rels[0].TargetID)
	}
	if rels[0].ID == "" {
		t.Error("relationship should have an ID")
	}
}

func TestEngine_AnalyzePair_UnknownTypeRejected(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [
		{"type": "mystery_relation", "confidence": 0.9}
	]}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	rels, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if err != nil {
		t.Fatalf("AnalyzePair() error = %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("got %d relationships, want 0 (unknown type)", len(rels))
	}
}

func TestEngine_AnalyzePair_AllowListFilter(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [
		{"type": "contradicts", "confidence": 0.9},
		{"type": "same_topic", "confidence": 0.8}
	]}`}
	cfg := DefaultConfig()
	cfg.AllowedTypes = []Type{TypeSameTopic}
	engine := NewEngine(client, cfg, testLog)

	rels, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if err != nil {
		t.Fatalf("AnalyzePair() error = %v", err)
	}
	if len(rels) != 1 || rels[0].Type != TypeSameTopic {
		t.Errorf("rels = %+v, want only same_topic", rels)
	}
}

func TestEngine_AnalyzePair_CapAndOrder(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [
		{"type": "same_topic", "confidence": 0.6},
		{"type": "elaborates", "confidence": 0.9},
		{"type": "supports", "confidence": 0.7},
		{"type": "references", "confidence": 0.8}
	]}`}
	engine := NewEngine(client, Config{MinConfidence: 0.5, MaxPerPair: 2}, testLog)

	rels, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if err != nil {
		t.Fatalf("AnalyzePair() error = %v", err)
	}

	if len(rels) != 2 {
		t.Fatalf("got %d relationships, want 2 (MaxPerPair)", len(rels))
	}
	if rels[0].Confidence != 0.9 || rels[1].Confidence != 0.8 {
		t.Errorf("confidences = %v, %v, want 0.9, 0.8 descending", rels[0].Confidence, rels[1].Confidence)
	}
}

func TestEngine_AnalyzePair_ClampsConfidence(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [
		{"type": "same_topic", "confidence": 1.7}
	]}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	rels, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if err != nil {
		t.Fatalf("AnalyzePair() error = %v", err)
	}
	if len(rels) != 1 || rels[0].Confidence != 1.0 {
		t.Errorf("rels = %+v, want one relationship clamped to 1.0", rels)
	}
}

func TestEngine_AnalyzePair_UnusableReply(t *testing.T) {
	client := &mockClient{fallback: "no structured data here"}
	engine := NewEngine(client, DefaultConfig(), testLog)

	rels, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if err != nil {
		t.Fatalf("AnalyzePair() error = %v (unusable reply is not an error)", err)
	}
	if len(rels) != 0 {
		t.Errorf("got %d relationships, want 0", len(rels))
	}
}

func TestEngine_AnalyzePair_BackendErrorPropagates(t *testing.T) {
	backendErr := errors.New("backend down")
	client := &mockClient{script: []scriptedResponse{{err: backendErr}}}
	engine := NewEngine(client, DefaultConfig(), testLog)

	_, err := engine.AnalyzePair(context.Background(), frag("a"), frag("b"))
	if !errors.Is(err, backendErr) {
		t.Fatalf("AnalyzePair() error = %v, want backend error", err)
	}
}

func TestEngine_AnalyzeRelationships_Sequential(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [{"type": "same_topic", "confidence": 0.8}]}`}
	cfg := DefaultConfig()
	cfg.EnableParallel = false
	engine := NewEngine(client, cfg, testLog)

	analysis := engine.AnalyzeRelationships(context.Background(), frag("src"), []corpus.Fragment{frag("c1"), frag("c2")})

	if !analysis.Success {
		t.Fatalf("Success = false, error = %s", analysis.ErrorMessage)
	}
	if analysis.FragmentID != "src" {
		t.Errorf("FragmentID = %s", analysis.FragmentID)
	}
	if len(analysis.Relationships) != 2 {
		t.Errorf("got %d relationships, want 2", len(analysis.Relationships))
	}
	if client.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", client.calls.Load())
	}
}

func TestEngine_AnalyzeRelationships_DegradesOnError(t *testing.T) {
	// First pair succeeds, second fails: partial results, Success=false,
	// no error escapes.
	client := &mockClient{script: []scriptedResponse{
		{text: `{"relationships": [{"type": "supports", "confidence": 0.9}]}`},
		{err: errors.New("backend down")},
	}}
	cfg := DefaultConfig()
	cfg.EnableParallel = false
	engine := NewEngine(client, cfg, testLog)

	analysis := engine.AnalyzeRelationships(context.Background(), frag("src"), []corpus.Fragment{frag("c1"), frag("c2")})

	if analysis.Success {
		t.Error("Success = true, want false after a pair failure")
	}
	if analysis.ErrorMessage == "" {
		t.Error("ErrorMessage should carry the failure")
	}
	if len(analysis.Relationships) != 1 {
		t.Errorf("got %d partial relationships, want 1", len(analysis.Relationships))
	}
}

func TestEngine_AnalyzeRelationships_ParallelBounded(t *testing.T) {
	client := &mockClient{
		fallback: `{"relationships": []}`,
		delay:    20 * time.Millisecond,
	}
	cfg := DefaultConfig()
	cfg.EnableParallel = true
	cfg.MaxParallel = 2
	engine := NewEngine(client, cfg, testLog)

	candidates := []corpus.Fragment{frag("c1"), frag("c2"), frag("c3"), frag("c4"), frag("c5"), frag("c6")}
	analysis := engine.AnalyzeRelationships(context.Background(), frag("src"), candidates)

	if !analysis.Success {
		t.Fatalf("Success = false, error = %s", analysis.ErrorMessage)
	}
	if got := client.calls.Load(); got != int32(len(candidates)) {
		t.Errorf("calls = %d, want %d", got, len(candidates))
	}
	if got := client.maxInflight.Load(); got > 2 {
		t.Errorf("max in-flight calls = %d, want <= 2 (semaphore bound)", got)
	}
}

func TestEngine_AnalyzeRelationships_ParallelSortedOutput(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": [{"type": "same_topic", "confidence": 0.7}]}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	analysis := engine.AnalyzeRelationships(context.Background(), frag("src"), []corpus.Fragment{frag("c3"), frag("c1"), frag("c2")})

	if !analysis.Success {
		t.Fatalf("Success = false, error = %s", analysis.ErrorMessage)
	}
	// Equal confidences sort by target ID, so output order is
	// reproducible no matter which worker finished first.
	want := []string{"c1", "c2", "c3"}
	if len(analysis.Relationships) != len(want) {
		t.Fatalf("got %d relationships, want %d", len(analysis.Relationships), len(want))
	}
	for i, w := range want {
		if analysis.Relationships[i].TargetID != w {
			t.Errorf("relationships[%d].TargetID = %s, want %s", i, analysis.Relationships[i].TargetID, w)
		}
	}
}

func TestEngine_AnalyzeRelationships_EmptyResultMarshalsAsArray(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": []}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	analysis := engine.AnalyzeRelationships(context.Background(), frag("src"), []corpus.Fragment{frag("c1"), frag("c2")})

	if analysis.Relationships == nil {
		t.Fatal("Relationships should be an empty slice, not nil")
	}
	encoded, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(encoded), `"relationships":[]`) {
		t.Errorf("encoded analysis = %s, expected an empty relationships array", encoded)
	}
}

func TestEngine_DiscoverAll_PairCount(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": []}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	fragments := []corpus.Fragment{frag("a"), frag("b"), frag("c"), frag("d"), frag("e")}
	if _, err := engine.DiscoverAll(context.Background(), fragments); err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}

	// n=5 fragments means exactly n(n-1)/2 = 10 pair analyses.
	if got := client.calls.Load(); got != 10 {
		t.Errorf("calls = %d, want 10", got)
	}
}

func TestEngine_DiscoverAll_SkipsSelfPairs(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": []}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	// A corpus carrying the same fragment twice has one unique pair:
	// a-b. The a-a pairing must not reach the backend.
	fragments := []corpus.Fragment{frag("a"), frag("b"), frag("a")}
	if _, err := engine.DiscoverAll(context.Background(), fragments); err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}

	if got := client.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (self pairs and repeats skipped)", got)
	}
}

func TestEngine_DiscoverAll_FailFast(t *testing.T) {
	backendErr := errors.New("backend down")
	client := &mockClient{script: []scriptedResponse{
		{text: `{"relationships": []}`},
		{err: backendErr},
	}}
	engine := NewEngine(client, DefaultConfig(), testLog)

	fragments := []corpus.Fragment{frag("a"), frag("b"), frag("c")}
	_, err := engine.DiscoverAll(context.Background(), fragments)
	if !errors.Is(err, backendErr) {
		t.Fatalf("DiscoverAll() error = %v, want backend error (fail fast)", err)
	}
	if got := client.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (sweep aborts on first failure)", got)
	}
}

func TestEngine_DiscoverAll_Cancellation(t *testing.T) {
	client := &mockClient{fallback: `{"relationships": []}`}
	engine := NewEngine(client, DefaultConfig(), testLog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.DiscoverAll(ctx, []corpus.Fragment{frag("a"), frag("b")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DiscoverAll() error = %v, want context.Canceled", err)
	}
	if client.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0 after cancellation", client.calls.Load())
	}
}

func TestPairKey_Canonical(t *testing.T) {
	if pairKey("a", "b") != pairKey("b", "a") {
		t.Error("pairKey should be symmetric")
	}
	if pairKey("a", "b") == pairKey("a", "c") {
		t.Error("pairKey should distinguish different pairs")
	}
}
