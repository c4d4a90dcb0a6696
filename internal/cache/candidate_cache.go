package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CandidateCache memoizes the oldest-overdue candidate scan per sub-bucket
// so successive stages in one cycle don't recompute it. Cache content is
// never authoritative; callers fall back to the repository on any miss or
// error.
type CandidateCache interface {
	// Get returns the cached candidate ids for a sub-bucket. The boolean
	// is false on a miss.
	Get(ctx context.Context, subBucket string) ([]uuid.UUID, bool, error)

	// Set stores candidate ids for a sub-bucket with the configured TTL.
	Set(ctx context.Context, subBucket string, ids []uuid.UUID) error

	// Invalidate drops the cached list for a sub-bucket.
	Invalidate(ctx context.Context, subBucket string) error
}

type redisCandidateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCandidateCache(client *redis.Client, ttl time.Duration) CandidateCache {
	return &redisCandidateCache{client: client, ttl: ttl}
}

func candidateKey(subBucket string) string {
	return "collection:candidates:" + subBucket
}

func (c *redisCandidateCache) Get(ctx context.Context, subBucket string) ([]uuid.UUID, bool, error) {
	raw, err := c.client.Get(ctx, candidateKey(subBucket)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// A corrupt entry counts as a miss; the repository is the source
		// of truth.
		return nil, false, nil
	}

	return ids, true, nil
}

func (c *redisCandidateCache) Set(ctx context.Context, subBucket string, ids []uuid.UUID) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, candidateKey(subBucket), raw, c.ttl).Err()
}

func (c *redisCandidateCache) Invalidate(ctx context.Context, subBucket string) error {
	return c.client.Del(ctx, candidateKey(subBucket)).Err()
}
