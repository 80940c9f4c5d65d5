package cache

import (
	"context"
	"sync"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
)

type memoryEntry struct {
	posts    []collector.Post
	expireAt time.Time
}

// MemoryStore 进程内缓存，过期条目在读取时清理
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time // for testing
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]collector.Post, bool, error) {
	m.mu.RLock()
	ent, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(ent.expireAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expireAt.Equal(ent.expireAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return ent.posts, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, posts []collector.Post, ttl time.Duration) error {
	cp := make([]collector.Post, len(posts))
	copy(cp, posts)

	m.mu.Lock()
	m.entries[key] = memoryEntry{posts: cp, expireAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len 返回当前条目数（含尚未清理的过期条目）
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
