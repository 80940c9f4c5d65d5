package cache

import (
	"context"
	"log"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"golang.org/x/sync/singleflight"
)

// Loader 实现“先读缓存，未命中再请求远端并回写”的路径。
// 同一个键的并发未命中只会触发一次远端请求。
type Loader struct {
	store   Store
	fetcher collector.Fetcher
	ttl     time.Duration
	group   singleflight.Group
}

func NewLoader(store Store, fetcher collector.Fetcher) *Loader {
	return &Loader{store: store, fetcher: fetcher, ttl: DefaultTTL}
}

// Fetch 返回站点的文章列表；远端出错时直接返回错误，不写缓存
func (l *Loader) Fetch(ctx context.Context, sourceURL string) ([]collector.Post, error) {
	key := Key(sourceURL)

	posts, ok, err := l.store.Get(ctx, key)
	if err != nil {
		log.Printf("cache: get %s failed, treat as miss: %v", key, err)
	}
	if ok && len(posts) > 0 {
		return posts, nil
	}

	return l.load(ctx, key, sourceURL)
}

// Refresh 忽略现有条目，直接拉取并覆盖缓存，供预热任务使用
func (l *Loader) Refresh(ctx context.Context, sourceURL string) ([]collector.Post, error) {
	return l.load(ctx, Key(sourceURL), sourceURL)
}

// sharedFetchTimeout 限制合并后的远端请求；它不跟随任何一个调用方的 ctx
const sharedFetchTimeout = 30 * time.Second

func (l *Loader) load(ctx context.Context, key, sourceURL string) ([]collector.Post, error) {
	ch := l.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		posts, err := l.fetcher.Fetch(fctx, sourceURL)
		if err != nil {
			return nil, err
		}
		if err := l.store.Set(fctx, key, posts, l.ttl); err != nil {
			log.Printf("cache: set %s failed: %v", key, err)
		}
		return posts, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]collector.Post), nil
	}
}
