package cache

import (
	"fmt"
	"log"
)

const (
	BackendRedis   = "redis"
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

// Open 按配置选择缓存后端；redis 不可用时退回内存缓存。
// 返回的 close 函数总是非 nil。
func Open(backend, redisAddr, leveldbPath string) (Store, func(), error) {
	noop := func() {}

	switch backend {
	case BackendRedis, "":
		rdb, err := DialRedis(redisAddr)
		if err != nil {
			log.Printf("warn: redis unavailable, fallback to memory cache: %v", err)
			return NewMemoryStore(), noop, nil
		}
		return NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	case BackendLevelDB:
		s, err := OpenLevelDBStore(leveldbPath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("cache: unknown backend %q", backend)
	}
}
