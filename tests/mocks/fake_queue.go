package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// EnqueuedTask records one dispatch for assertions.
type EnqueuedTask struct {
	Name    string
	Payload interface{}
}

// FakeDispatcher collects enqueued tasks instead of pushing to redis.
type FakeDispatcher struct {
	mu    sync.Mutex
	Tasks []EnqueuedTask
	Err   error
}

func (d *FakeDispatcher) Enqueue(_ context.Context, name string, payload interface{}) error {
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Tasks = append(d.Tasks, EnqueuedTask{Name: name, Payload: payload})
	return nil
}

// TasksNamed returns the dispatched tasks carrying the given name.
func (d *FakeDispatcher) TasksNamed(name string) []EnqueuedTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []EnqueuedTask
	for _, t := range d.Tasks {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

// FakeCandidateCache is an in-memory CandidateCache.
type FakeCandidateCache struct {
	mu      sync.Mutex
	Entries map[string][]uuid.UUID
	GetErr  error
}

func NewFakeCandidateCache() *FakeCandidateCache {
	return &FakeCandidateCache{Entries: make(map[string][]uuid.UUID)}
}

func (c *FakeCandidateCache) Get(_ context.Context, subBucket string) ([]uuid.UUID, bool, error) {
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.Entries[subBucket]
	return ids, ok, nil
}

func (c *FakeCandidateCache) Set(_ context.Context, subBucket string, ids []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[subBucket] = ids
	return nil
}

func (c *FakeCandidateCache) Invalidate(_ context.Context, subBucket string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Entries, subBucket)
	return nil
}
