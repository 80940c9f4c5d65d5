// Package cache 缓存远端站点的文章列表，避免每次渲染都请求网络。
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
)

// DefaultTTL 列表缓存时长固定为 15 分钟
const DefaultTTL = 15 * time.Minute

const keyPrefix = "blogcrosspost_link_"

// Store 是外部提供的带过期时间的键值存储
type Store interface {
	Get(ctx context.Context, key string) ([]collector.Post, bool, error)
	Set(ctx context.Context, key string, posts []collector.Post, ttl time.Duration) error
}

// Fingerprint 返回 md5(url) 的前 16 位十六进制
func Fingerprint(sourceURL string) string {
	sum := md5.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])[:16]
}

// Key 返回某个站点在缓存中的键
func Key(sourceURL string) string {
	return keyPrefix + Fingerprint(sourceURL)
}
