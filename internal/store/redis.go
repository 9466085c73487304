package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/pkg/errors"
	"github.com/qaforge/qa-forge/internal/relationship"
)

const (
	redisPrefix          = "qaforge:"
	candidatesSegment    = "candidates:"
	relationshipsSegment = "relationships:"
)

// RedisStore persists datasets in Redis hashes, one hash per dataset
// per record kind, with JSON-encoded records keyed by ID.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidRequest, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis", err)
	}

	return &RedisStore{
		client: client,
		prefix: redisPrefix,
	}, nil
}

func (s *RedisStore) candidatesKey(dataset string) string {
	return s.prefix + candidatesSegment + dataset
}

func (s *RedisStore) relationshipsKey(dataset string) string {
	return s.prefix + relationshipsSegment + dataset
}

func (s *RedisStore) SaveCandidates(ctx context.Context, dataset string, candidates []evaluation.Candidate) error {
	if dataset == "" {
		return errors.New(errors.CodeValidation, "dataset name is required")
	}
	if len(candidates) == 0 {
		return nil
	}

	fields := make(map[string]any, len(candidates))
	for _, c := range candidates {
		encoded, err := json.Marshal(c)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, "encoding candidate "+c.ID, err)
		}
		fields[c.ID] = encoded
	}

	if err := s.client.HSet(ctx, s.candidatesKey(dataset), fields).Err(); err != nil {
		return errors.StoreError("saving candidates", err)
	}
	return nil
}

func (s *RedisStore) LoadCandidates(ctx context.Context, dataset string) ([]evaluation.Candidate, error) {
	raw, err := s.client.HGetAll(ctx, s.candidatesKey(dataset)).Result()
	if err != nil {
		return nil, errors.StoreError("loading candidates", err)
	}

	out := make([]evaluation.Candidate, 0, len(raw))
	for id, encoded := range raw {
		var c evaluation.Candidate
		if err := json.Unmarshal([]byte(encoded), &c); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, "decoding candidate "+id, err)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisStore) SaveRelationships(ctx context.Context, dataset string, relationships []relationship.Relationship) error {
	if dataset == "" {
		return errors.New(errors.CodeValidation, "dataset name is required")
	}
	if len(relationships) == 0 {
		return nil
	}

	fields := make(map[string]any, len(relationships))
	for _, r := range relationships {
		encoded, err := json.Marshal(r)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, "encoding relationship "+r.ID, err)
		}
		fields[r.ID] = encoded
	}

	if err := s.client.HSet(ctx, s.relationshipsKey(dataset), fields).Err(); err != nil {
		return errors.StoreError("saving relationships", err)
	}
	return nil
}

func (s *RedisStore) LoadRelationships(ctx context.Context, dataset string) ([]relationship.Relationship, error) {
	raw, err := s.client.HGetAll(ctx, s.relationshipsKey(dataset)).Result()
	if err != nil {
		return nil, errors.StoreError("loading relationships", err)
	}

	out := make([]relationship.Relationship, 0, len(raw))
	for id, encoded := range raw {
		var r relationship.Relationship
		if err := json.Unmarshal([]byte(encoded), &r); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, "decoding relationship "+id, err)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisStore) ListDatasets(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, s.prefix+"*").Result()
	if err != nil {
		return nil, errors.StoreError("listing datasets", err)
	}

	seen := make(map[string]bool)
	for _, key := range keys {
		rest := strings.TrimPrefix(key, s.prefix)
		if name, ok := strings.CutPrefix(rest, candidatesSegment); ok {
			seen[name] = true
			continue
		}
		if name, ok := strings.CutPrefix(rest, relationshipsSegment); ok {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStore) DeleteDataset(ctx context.Context, dataset string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.candidatesKey(dataset))
	pipe.Del(ctx, s.relationshipsKey(dataset))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.StoreError("deleting dataset", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
