// Package cache provides the read-through cache used for list queries.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Cache stores opaque values under string keys with a TTL.
type Cache interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// TaskListPrefix is the prefix shared by every cached task list of a user.
func TaskListPrefix(userID uint64) string {
	return fmt.Sprintf("user:%d:tasks:", userID)
}

// TaskListKey identifies one filtered, paginated task list of a user.
func TaskListKey(userID uint64, status, priority, search string, page, limit int) string {
	return fmt.Sprintf("%s%s:%s:%s:%d:%d", TaskListPrefix(userID), status, priority, search, page, limit)
}

// CommentListPrefix is the prefix shared by every cached comment list of a task.
func CommentListPrefix(taskID uint64) string {
	return fmt.Sprintf("task:%d:comments:", taskID)
}

// CommentListKey identifies one paginated comment list of a task.
func CommentListKey(taskID uint64, includeActivity bool, page, limit int) string {
	return fmt.Sprintf("%s%t:%d:%d", CommentListPrefix(taskID), includeActivity, page, limit)
}

// Store wraps a Cache with JSON encoding and swallows backend failures:
// a broken cache degrades to a miss, never to a failed request.
type Store struct {
	backend Cache
	ttl     time.Duration
	log     *zap.Logger
}

func NewStore(backend Cache, ttl time.Duration, log *zap.Logger) *Store {
	return &Store{backend: backend, ttl: ttl, log: log}
}

// GetJSON decodes the cached value into dst and reports a hit.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores value under key with the store TTL.
func (s *Store) SetJSON(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache value unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.backend.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes every key under each prefix. A failing prefix does not
// stop the others.
func (s *Store) Invalidate(ctx context.Context, prefixes ...string) error {
	var errs error
	for _, prefix := range prefixes {
		if err := s.backend.DeletePrefix(ctx, prefix); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to invalidate %s: %w", prefix, err))
		}
	}
	return errs
}
