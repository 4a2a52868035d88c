package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/rules-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// RequestsKey is the Redis list every worker drains.
const RequestsKey = "requests"

// UpdateQueue is the shared FIFO of knowledge updates and deferred actions.
type UpdateQueue struct {
	client *Client
}

func NewUpdateQueue(client *Client) *UpdateQueue {
	return &UpdateQueue{
		client: client,
	}
}

// EnqueueRequest appends req to the tail of the queue.
func (q *UpdateQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	q.client.logger.Debug("Request enqueued",
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String())
	return nil
}

// DequeueRequest removes and returns the next request.
// Returns nil if queue is empty
func (q *UpdateQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	return parse(result)
}

// BlockingDequeueRequest waits up to timeout for a request. It returns
// nil, nil when the timeout passes with the queue still empty.
func (q *UpdateQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return parse(result[1])
}

// Depth returns the number of queued requests.
func (q *UpdateQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, RequestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}

func parse(raw string) (*queue.Request, error) {
	req, err := queue.FromJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}
