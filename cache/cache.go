package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

// Cache is a time-boxed cache backed by a bbolt bucket. Entries carry their
// storage time and expire lazily: an expired entry is simply skipped on
// lookup, never proactively evicted. Lookup and Update swallow storage
// errors since a cache miss is always a safe outcome.
type Cache[T any] struct {
	db     *bbolt.DB
	bucket []byte
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time
}

type entry[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

func New[T any](bucket, path string, ttl time.Duration) (*Cache[T], error) {
	logger := slog.With("bucket", bucket)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 20 * time.Second})
	if err != nil {
		logger.Error("error opening cache db", "path", path, "error", err)
		return nil, fmt.Errorf("error creating cache: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		logger.Error("error creating cache bucket", "error", err)
		return nil, fmt.Errorf("error creating cache: %w", err)
	}

	return &Cache[T]{db: db, bucket: []byte(bucket), ttl: ttl, logger: logger, now: time.Now}, nil
}

// NewShared opens a cache bucket on an already-open bbolt db. Multiple caches
// with distinct buckets can share one file this way.
func NewShared[T any](db *bbolt.DB, bucket string, ttl time.Duration) (*Cache[T], error) {
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		return nil, fmt.Errorf("error creating cache bucket: %w", err)
	}
	return &Cache[T]{db: db, bucket: []byte(bucket), ttl: ttl, logger: slog.With("bucket", bucket), now: time.Now}, nil
}

func (cache *Cache[T]) Close() error {
	return cache.db.Close()
}

// Lookup returns the cached value for key, or nil if there is none or the
// entry has outlived the cache's ttl.
func (cache *Cache[T]) Lookup(key string) *T {
	var found *entry[T]
	err := cache.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(cache.bucket).Get([]byte(key))
		if data != nil {
			found = new(entry[T])
			if err := json.Unmarshal(data, found); err != nil {
				return fmt.Errorf("error parsing cache data: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		cache.logger.Error("cache access failed", "key", key, "error", err)
		return nil // No error since the caller can always recompute.
	}

	if found == nil {
		return nil
	}

	if cache.now().Sub(found.StoredAt) >= cache.ttl {
		cache.logger.Debug("cached entry expired", "key", key)
		return nil
	}

	return &found.Value
}

func (cache *Cache[T]) Update(key string, value T) {
	data, err := json.Marshal(entry[T]{Value: value, StoredAt: cache.now()})
	if err != nil {
		cache.logger.Error("error serializing cache entry", "key", key, "error", err)
		return
	}

	if err := cache.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cache.bucket).Put([]byte(key), data)
	}); err != nil {
		cache.logger.Error("cache update failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key if fresh, otherwise invokes
// compute and stores the result. Concurrent callers that both miss may both
// compute; the cache is best effort, last write wins.
func (cache *Cache[T]) GetOrCompute(key string, compute func() (T, error)) (T, error) {
	if cached := cache.Lookup(key); cached != nil {
		return *cached, nil
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	cache.Update(key, value)
	return value, nil
}
