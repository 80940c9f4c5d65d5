package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/redis/go-redis/v9"
)

// RedisStore 以 JSON 形式保存文章列表，过期交给 Redis 的 TTL
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// DialRedis 创建客户端并做一次 Ping；Ping 失败时返回错误由调用方决定是否降级
func DialRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]collector.Post, bool, error) {
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get %s: %w", key, err)
	}

	var posts []collector.Post
	if err := json.Unmarshal(bs, &posts); err != nil {
		// 旧格式或损坏的值当作未命中，下次写入会覆盖
		log.Printf("cache: drop undecodable redis value %s: %v", key, err)
		return nil, false, nil
	}
	return posts, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, posts []collector.Post, ttl time.Duration) error {
	bs, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, bs, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}
