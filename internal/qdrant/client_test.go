package qdrant

import (
	"fmt"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	if cfg.Host != DefaultHost {
		t.Errorf("expected host %s, got %s", DefaultHost, cfg.Host)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"docs", "qaforge_docs"},
		{"kb-prod", "qaforge_kb-prod"},
	}

	for _, tt := range tests {
		result := collectionName(tt.input)
		if result != tt.expected {
			t.Errorf("collectionName(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestFragmentFromPoint(t *testing.T) {
	point := &qdrant.RetrievedPoint{
		Id: qdrant.NewIDUUID("9f2c4e1a-0000-0000-0000-000000000001"),
		Payload: map[string]*qdrant.Value{
			"content": qdrant.NewValueString("Indexing builds a searchable structure."),
			"source":  qdrant.NewValueString("docs/indexing.md"),
			"section": qdrant.NewValueString("overview"),
			"chunk":   qdrant.NewValueInt(3),
		},
	}

	fragment := fragmentFromPoint(point)

	if fragment.ID != "9f2c4e1a-0000-0000-0000-000000000001" {
		t.Errorf("ID = %s", fragment.ID)
	}
	if fragment.Content != "Indexing builds a searchable structure." {
		t.Errorf("Content = %q", fragment.Content)
	}
	if fragment.Source != "docs/indexing.md" {
		t.Errorf("Source = %q", fragment.Source)
	}
	if fragment.Metadata["section"] != "overview" {
		t.Errorf("Metadata = %v, expected section lifted into metadata", fragment.Metadata)
	}
	if _, ok := fragment.Metadata["chunk"]; ok {
		t.Error("non-string payload values should not land in metadata")
	}
	if _, ok := fragment.Metadata["content"]; ok {
		t.Error("content should not be duplicated into metadata")
	}
}

func TestCollectFragments_Pagination(t *testing.T) {
	point := func(id uint64) *qdrant.RetrievedPoint {
		return &qdrant.RetrievedPoint{
			Id: qdrant.NewIDNum(id),
			Payload: map[string]*qdrant.Value{
				"content": qdrant.NewValueString(fmt.Sprintf("passage %d", id)),
			},
		}
	}

	pages := [][]*qdrant.RetrievedPoint{
		{point(1), point(2), point(3)},
		{point(4), point(5)},
	}
	var gotOffsets []*qdrant.PointId

	fragments, err := collectFragments(func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		gotOffsets = append(gotOffsets, offset)
		current := pages[0]
		pages = pages[1:]
		if len(pages) == 0 {
			return current, nil, nil
		}
		return current, qdrant.NewIDNum(4), nil
	})
	if err != nil {
		t.Fatalf("collectFragments() error = %v", err)
	}

	// Every point exactly once, even across the page boundary.
	if len(fragments) != 5 {
		t.Fatalf("got %d fragments, expected 5", len(fragments))
	}
	seen := make(map[string]bool)
	for _, f := range fragments {
		if seen[f.ID] {
			t.Errorf("fragment %s returned twice", f.ID)
		}
		seen[f.ID] = true
	}

	if len(gotOffsets) != 2 {
		t.Fatalf("page fetched %d times, expected 2", len(gotOffsets))
	}
	if gotOffsets[0] != nil {
		t.Error("first page should be fetched without an offset")
	}
	if gotOffsets[1] == nil || gotOffsets[1].GetNum() != 4 {
		t.Errorf("second page offset = %v, expected server cursor 4", gotOffsets[1])
	}
}

func TestCollectFragments_SkipsEmptyContent(t *testing.T) {
	fragments, err := collectFragments(func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		return []*qdrant.RetrievedPoint{
			{
				Id: qdrant.NewIDNum(1),
				Payload: map[string]*qdrant.Value{
					"content": qdrant.NewValueString("usable"),
				},
			},
			{
				Id:      qdrant.NewIDNum(2),
				Payload: map[string]*qdrant.Value{},
			},
		}, nil, nil
	})
	if err != nil {
		t.Fatalf("collectFragments() error = %v", err)
	}
	if len(fragments) != 1 || fragments[0].ID != "1" {
		t.Errorf("fragments = %+v, expected only the point with content", fragments)
	}
}

func TestFragmentFromPoint_NumericID(t *testing.T) {
	point := &qdrant.RetrievedPoint{
		Id: qdrant.NewIDNum(42),
		Payload: map[string]*qdrant.Value{
			"content": qdrant.NewValueString("text"),
		},
	}

	fragment := fragmentFromPoint(point)
	if fragment.ID != "42" {
		t.Errorf("ID = %s, expected numeric ID rendered as string", fragment.ID)
	}
}
