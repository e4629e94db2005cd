// Package redisstore keeps task selection counters in Redis for deployments
// that run several web replicas.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const countsKey = "task_counts"

// incrementScript adds ARGV[2] to field ARGV[1] and clamps the result at 0.
// Lua scripts run atomically on the server.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local updated = current + tonumber(ARGV[2])
if updated < 0 then
	updated = 0
end
redis.call('HSET', KEYS[1], ARGV[1], tostring(updated))
return updated
`)

// TaskCountStore implements task counters on a Redis hash.
type TaskCountStore struct {
	client *redis.Client
	key    string
}

// NewTaskCountStore connects to redisURL and verifies the connection.
func NewTaskCountStore(redisURL string) (*TaskCountStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewTaskCountStoreWithClient(client), nil
}

// NewTaskCountStoreWithClient creates a store from an existing client.
func NewTaskCountStoreWithClient(client *redis.Client) *TaskCountStore {
	return &TaskCountStore{client: client, key: countsKey}
}

// Increment atomically adds delta to taskID's counter and returns the new
// value, never below zero.
func (s *TaskCountStore) Increment(ctx context.Context, taskID string, delta int64) (int64, error) {
	n, err := incrementScript.Run(ctx, s.client, []string{s.key}, taskID, delta).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment task count: %w", err)
	}
	return n, nil
}

func (s *TaskCountStore) GetAll(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list task counts: %w", err)
	}
	counts := make(map[string]int64, len(raw))
	for taskID, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse count for %s: %w", taskID, err)
		}
		counts[taskID] = n
	}
	return counts, nil
}

// Close closes the Redis connection.
func (s *TaskCountStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *TaskCountStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
