package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// BlobStore is a byte-blob key/value store. Load returns (nil, nil) for a
// missing key.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisBlobStore keeps blobs as plain Redis strings under a key prefix.
type RedisBlobStore struct {
	redis  RedisClient
	prefix string
}

func NewRedisBlobStore(redisClient RedisClient, prefix string) *RedisBlobStore {
	return &RedisBlobStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.GetBytes(ctx, s.blobKey(key))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load blob %q: %w", key, err)
	}
	return data, nil
}

func (s *RedisBlobStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.redis.Set(ctx, s.blobKey(key), data, 0); err != nil {
		return fmt.Errorf("failed to save blob %q: %w", key, err)
	}
	return nil
}

func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.blobKey(key)); err != nil {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}

func (s *RedisBlobStore) blobKey(key string) string {
	return fmt.Sprintf("%sblob:%s", s.prefix, key)
}
