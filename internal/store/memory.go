package store

import (
	"context"
	"sort"
	"sync"

	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/pkg/errors"
	"github.com/qaforge/qa-forge/internal/relationship"
)

// MemoryStore is an in-memory store for tests and single-run usage.
type MemoryStore struct {
	mu            sync.RWMutex
	candidates    map[string]map[string]evaluation.Candidate
	relationships map[string]map[string]relationship.Relationship
	closed        bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates:    make(map[string]map[string]evaluation.Candidate),
		relationships: make(map[string]map[string]relationship.Relationship),
	}
}

func (s *MemoryStore) SaveCandidates(ctx context.Context, dataset string, candidates []evaluation.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.CodeUnavailable, "store is closed")
	}
	if dataset == "" {
		return errors.New(errors.CodeValidation, "dataset name is required")
	}

	byID, ok := s.candidates[dataset]
	if !ok {
		byID = make(map[string]evaluation.Candidate)
		s.candidates[dataset] = byID
	}
	for _, c := range candidates {
		byID[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) LoadCandidates(ctx context.Context, dataset string) ([]evaluation.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.New(errors.CodeUnavailable, "store is closed")
	}

	byID := s.candidates[dataset]
	out := make([]evaluation.Candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveRelationships(ctx context.Context, dataset string, relationships []relationship.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.CodeUnavailable, "store is closed")
	}
	if dataset == "" {
		return errors.New(errors.CodeValidation, "dataset name is required")
	}

	byID, ok := s.relationships[dataset]
	if !ok {
		byID = make(map[string]relationship.Relationship)
		s.relationships[dataset] = byID
	}
	for _, r := range relationships {
		byID[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) LoadRelationships(ctx context.Context, dataset string) ([]relationship.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.New(errors.CodeUnavailable, "store is closed")
	}

	byID := s.relationships[dataset]
	out := make([]relationship.Relationship, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListDatasets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.New(errors.CodeUnavailable, "store is closed")
	}

	seen := make(map[string]bool)
	for name := range s.candidates {
		seen[name] = true
	}
	for name := range s.relationships {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) DeleteDataset(ctx context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.CodeUnavailable, "store is closed")
	}

	delete(s.candidates, dataset)
	delete(s.relationships, dataset)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
