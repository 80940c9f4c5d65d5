package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/api"
	"github.com/LJTian/BlogCrosspost/internal/cache"
	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/config"
	"github.com/LJTian/BlogCrosspost/internal/crosspost"
	"github.com/LJTian/BlogCrosspost/internal/render"
	"github.com/LJTian/BlogCrosspost/internal/scheduler"
	"github.com/LJTian/BlogCrosspost/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeCache, err := cache.Open(cfg.CacheBackend, cfg.RedisAddr, cfg.LevelDBPath)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer closeCache()

	client := collector.NewHTTPClient(cfg.HTTPTimeout)
	loader := cache.NewLoader(store, collector.NewPostsFetcher(client))
	renderer := render.NewRenderer(collector.NewMediaClient(client))
	renderer.MediaConcurrency = cfg.MediaConcurrency
	svc := crosspost.NewService(loader, renderer, nil)

	configured, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	// 配置了数据库时，站点登记与预热结果都落库；否则只预热配置文件里的站点
	var (
		registry api.SourceRegistry
		lister   scheduler.SourceLister
		recorder scheduler.FetchRecorder
	)
	if cfg.PostgresDSN != "" {
		db, err := storage.NewStore(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		for _, src := range configured {
			u, err := crosspost.NormalizeSourceURL(src.URL)
			if err != nil {
				log.Printf("warn: skip source %q: %v", src.URL, err)
				continue
			}
			if _, err := db.EnsureSource(u, src.Name); err != nil {
				return fmt.Errorf("ensure source %s: %w", u, err)
			}
		}
		registry, lister, recorder = db, db, db
	} else {
		urls := make(scheduler.StaticSources, 0, len(configured))
		for _, src := range configured {
			urls = append(urls, src.URL)
		}
		lister = urls
	}

	s, err := scheduler.New(cfg.WarmupCron, lister, loader, recorder, cfg.WarmupRPS)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	s.Start()
	defer s.Stop()

	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	discoverer := &collector.Discoverer{Timeout: cfg.HTTPTimeout}
	api.NewServer(svc, discoverer, registry).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, srv)
}

// serve 运行到 ctx 结束或监听失败为止；ctx 结束时优雅关闭
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server exit: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down api server ...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
