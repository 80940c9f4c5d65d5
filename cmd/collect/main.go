package main

import (
	"log"

	"github.com/LJTian/BlogCrosspost/internal/cache"
	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/config"
	"github.com/LJTian/BlogCrosspost/internal/scheduler"
	"github.com/LJTian/BlogCrosspost/internal/storage"
)

// 一个仅执行一轮缓存预热的命令行入口：适合部署后或 cron 外部触发
func main() {
	cfg := config.Load()

	store, closeCache, err := cache.Open(cfg.CacheBackend, cfg.RedisAddr, cfg.LevelDBPath)
	if err != nil {
		log.Fatalf("init cache failed: %v", err)
	}
	defer closeCache()

	loader := cache.NewLoader(store, collector.NewPostsFetcher(collector.NewHTTPClient(cfg.HTTPTimeout)))

	var (
		lister   scheduler.SourceLister
		recorder scheduler.FetchRecorder
	)
	if cfg.PostgresDSN != "" {
		db, err := storage.NewStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		lister, recorder = db, db
	} else {
		configured, err := config.LoadSources(cfg.SourcesFile)
		if err != nil {
			log.Fatalf("load sources failed: %v", err)
		}
		urls := make(scheduler.StaticSources, 0, len(configured))
		for _, src := range configured {
			urls = append(urls, src.URL)
		}
		lister = urls
	}

	s, err := scheduler.New(cfg.WarmupCron, lister, loader, recorder, cfg.WarmupRPS)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮预热后退出
	if n := s.RunOnce(); n == 0 {
		log.Printf("warn: no source warmed up")
	}
}
