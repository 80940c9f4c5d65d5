package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/syndtr/goleveldb/leveldb"
)

type leveldbEntry struct {
	Posts    []collector.Post `json:"posts"`
	ExpireAt int64            `json:"expireAt"` // unix nanoseconds
}

// LevelDBStore 单机持久化缓存，重启后仍可命中；过期条目在读取时删除
type LevelDBStore struct {
	db  *leveldb.DB
	now func() time.Time
}

func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create leveldb dir: %w", err)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db, now: time.Now}, nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) Get(_ context.Context, key string) ([]collector.Post, bool, error) {
	bs, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: leveldb get %s: %w", key, err)
	}

	var ent leveldbEntry
	if err := json.Unmarshal(bs, &ent); err != nil {
		log.Printf("cache: drop undecodable leveldb value %s: %v", key, err)
		_ = s.db.Delete([]byte(key), nil)
		return nil, false, nil
	}
	if s.now().UnixNano() >= ent.ExpireAt {
		_ = s.db.Delete([]byte(key), nil)
		return nil, false, nil
	}
	return ent.Posts, true, nil
}

func (s *LevelDBStore) Set(_ context.Context, key string, posts []collector.Post, ttl time.Duration) error {
	bs, err := json.Marshal(leveldbEntry{Posts: posts, ExpireAt: s.now().Add(ttl).UnixNano()})
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := s.db.Put([]byte(key), bs, nil); err != nil {
		return fmt.Errorf("cache: leveldb put %s: %w", key, err)
	}
	return nil
}
