package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore 进程内缓存，单实例部署时使用
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore(defaultTTL, cleanup time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(defaultTTL, cleanup)}
}

// Get 获取缓存
func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	v, found := s.c.Get(key)
	if !found {
		return ErrCacheMiss
	}
	return json.Unmarshal(v.([]byte), dest)
}

// Set 设置缓存，ttl 为 0 时使用默认有效期
func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	s.c.Set(key, data, ttl)
	return nil
}

// Delete 删除缓存
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}
