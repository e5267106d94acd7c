package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTaskNotFound is returned when no result exists for a task ID.
var ErrTaskNotFound = errors.New("task result not found")

// ResultStore persists task outcomes for status queries.
type ResultStore interface {
	Set(ctx context.Context, taskID string, res Result) error
	Get(ctx context.Context, taskID string) (Result, error)
	Close() error
}

// taskKey namespaces task results in the store.
func taskKey(taskID string) string {
	return "notifier:task:" + taskID
}

// RedisResultStore keeps task results in Redis with a TTL, so completed
// tasks age out on their own.
type RedisResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultStore connects to Redis using a connection URL
// (redis://host:port/db) and verifies the connection with a ping.
func NewRedisResultStore(ctx context.Context, url string, ttl time.Duration) (*RedisResultStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse result store URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("result store not reachable: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisResultStore{client: client, ttl: ttl}, nil
}

// Set writes the result, refreshing the TTL.
func (s *RedisResultStore) Set(ctx context.Context, taskID string, res Result) error {
	res.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if err := s.client.Set(ctx, taskKey(taskID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}
	return nil
}

// Get reads the result for a task ID.
func (s *RedisResultStore) Get(ctx context.Context, taskID string) (Result, error) {
	data, err := s.client.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, ErrTaskNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read task result: %w", err)
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal task result: %w", err)
	}
	return res, nil
}

// Close releases the Redis connection.
func (s *RedisResultStore) Close() error {
	return s.client.Close()
}

// MemoryResultStore is an in-process ResultStore for tests and single-node
// setups.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

// NewMemoryResultStore creates an empty in-memory store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]Result)}
}

func (s *MemoryResultStore) Set(_ context.Context, taskID string, res Result) error {
	res.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.results[taskID] = res
	s.mu.Unlock()
	return nil
}

func (s *MemoryResultStore) Get(_ context.Context, taskID string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[taskID]
	if !ok {
		return Result{}, ErrTaskNotFound
	}
	return res, nil
}

func (s *MemoryResultStore) Close() error {
	return nil
}
