package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Task names understood by the worker.
const (
	TaskRunStage       = "collection.run_stage"
	TaskExpiryFollowup = "collection.expiry_followup"
	TaskRunExpirySweep = "collection.run_expiry_sweep"
)

// Task is the unit of asynchronous work. Payloads are opaque JSON decoded
// by the handler.
type Task struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// StagePayload drives one escalation stage run. Idempotency lives in the
// ledger guards, so redelivered payloads carry no dedup token.
type StagePayload struct {
	SubBucket string `json:"sub_bucket"`
}

// ExpiryFollowupPayload re-enqueues a freed account into its applicable
// stage after an expiry sweep.
type ExpiryFollowupPayload struct {
	AccountID string `json:"account_id"`
}

// Dispatcher enqueues tasks fire-and-forget with at-least-once delivery.
type Dispatcher interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
}

// Handler processes one task payload. Errors are logged, not retried by
// the consumer itself; redelivery comes from upstream re-dispatch and the
// periodic sweep.
type Handler func(ctx context.Context, payload json.RawMessage) error

type redisQueue struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

// NewDispatcher returns a redis-list backed dispatcher pushing to the
// given queue key.
func NewDispatcher(client *redis.Client, key string, log *zap.Logger) Dispatcher {
	return &redisQueue{client: client, key: key, log: log}
}

func (q *redisQueue) Enqueue(ctx context.Context, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := Task{Name: name, Payload: raw}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
		return err
	}

	q.log.Debug("task enqueued", zap.String("task", name))
	return nil
}

// Consumer pops tasks off the queue and routes them to handlers.
type Consumer struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
	handlers    map[string]Handler
	log         *zap.Logger
}

func NewConsumer(client *redis.Client, key string, pollTimeout time.Duration, log *zap.Logger) *Consumer {
	return &Consumer{
		client:      client,
		key:         key,
		pollTimeout: pollTimeout,
		handlers:    make(map[string]Handler),
		log:         log,
	}
}

// Register binds a handler to a task name. Not safe to call after Run has
// started.
func (c *Consumer) Register(name string, handler Handler) {
	c.handlers[name] = handler
}

// Run blocks, consuming tasks until the context is cancelled. A handler
// error never stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, c.pollTimeout, c.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.log.Error("queue pop failed", zap.Error(err))
			continue
		}

		// BRPop returns [key, value].
		if len(result) != 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			c.log.Error("malformed task dropped", zap.Error(err))
			continue
		}

		handler, ok := c.handlers[task.Name]
		if !ok {
			c.log.Warn("no handler for task", zap.String("task", task.Name))
			continue
		}

		if err := handler(ctx, task.Payload); err != nil {
			c.log.Error("task handler failed",
				zap.String("task", task.Name),
				zap.Error(err),
			)
		}
	}
}
