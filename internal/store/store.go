// Package store persists evaluated candidates and discovered
// relationships, grouped into named datasets.
package store

import (
	"context"

	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/relationship"
)

// Store persists pipeline output keyed by dataset name.
type Store interface {
	// SaveCandidates upserts candidates into a dataset, keyed by
	// candidate ID.
	SaveCandidates(ctx context.Context, dataset string, candidates []evaluation.Candidate) error

	// LoadCandidates returns every candidate in a dataset. A missing
	// dataset yields an empty slice, not an error.
	LoadCandidates(ctx context.Context, dataset string) ([]evaluation.Candidate, error)

	// SaveRelationships upserts relationships into a dataset, keyed by
	// relationship ID.
	SaveRelationships(ctx context.Context, dataset string, relationships []relationship.Relationship) error

	// LoadRelationships returns every relationship in a dataset.
	LoadRelationships(ctx context.Context, dataset string) ([]relationship.Relationship, error)

	// ListDatasets returns the names of datasets with stored data.
	ListDatasets(ctx context.Context) ([]string, error)

	// DeleteDataset removes a dataset's candidates and relationships.
	DeleteDataset(ctx context.Context, dataset string) error

	// Close releases backend resources.
	Close() error
}
