package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

const (
	lastRunKey = "sync:last_run"
	runKey     = "sync:run:%s"

	// DefaultStatusTTL keeps per-run reports around for a week.
	DefaultStatusTTL = 7 * 24 * time.Hour
)

// RedisStatusStore keeps the latest sync report in Redis so every API replica
// can answer GET /api/sync.
type RedisStatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatusStore(client *redis.Client, ttl time.Duration) *RedisStatusStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &RedisStatusStore{client: client, ttl: ttl}
}

func (s *RedisStatusStore) Save(ctx context.Context, report *entity.SyncReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal sync report: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lastRunKey, data, 0)
	if report.RunID != "" {
		pipe.Set(ctx, fmt.Sprintf(runKey, report.RunID), data, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store sync report: %w", err)
	}
	return nil
}

// Last returns nil, nil when no run was recorded yet.
func (s *RedisStatusStore) Last(ctx context.Context) (*entity.SyncReport, error) {
	return s.get(ctx, lastRunKey)
}

// Get returns one run by id, nil when it expired or never existed.
func (s *RedisStatusStore) Get(ctx context.Context, runID string) (*entity.SyncReport, error) {
	return s.get(ctx, fmt.Sprintf(runKey, runID))
}

func (s *RedisStatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStatusStore) get(ctx context.Context, key string) (*entity.SyncReport, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync report: %w", err)
	}

	var report entity.SyncReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync report: %w", err)
	}
	return &report, nil
}

// MemoryStatusStore is used when REDIS_URL is not set.
type MemoryStatusStore struct {
	mu   sync.RWMutex
	last *entity.SyncReport
	runs map[string]entity.SyncReport
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{runs: make(map[string]entity.SyncReport)}
}

func (s *MemoryStatusStore) Save(ctx context.Context, report *entity.SyncReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *report
	s.last = &copied
	if report.RunID != "" {
		s.runs[report.RunID] = copied
	}
	return nil
}

func (s *MemoryStatusStore) Last(ctx context.Context) (*entity.SyncReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, nil
	}
	copied := *s.last
	return &copied, nil
}

func (s *MemoryStatusStore) Get(ctx context.Context, runID string) (*entity.SyncReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.runs[runID]
	if !ok {
		return nil, nil
	}
	return &report, nil
}
