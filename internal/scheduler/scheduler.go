package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/crosspost"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

// SourceLister 提供需要预热的站点地址
type SourceLister interface {
	ListSourceURLs() ([]string, error)
}

// Refresher 强制拉取并覆盖缓存，一般是 *cache.Loader
type Refresher interface {
	Refresh(ctx context.Context, sourceURL string) ([]collector.Post, error)
}

// FetchRecorder 可选，记录每次预热的结果
type FetchRecorder interface {
	RecordFetch(url string, posts []collector.Post, err error) error
}

// StaticSources 来自配置文件的固定站点列表
type StaticSources []string

func (s StaticSources) ListSourceURLs() ([]string, error) {
	return s, nil
}

const fetchTimeout = 30 * time.Second

// Scheduler 在缓存过期前定期刷新所有登记站点，渲染请求因此基本都能命中缓存
type Scheduler struct {
	cron     *cron.Cron
	sources  SourceLister
	loader   Refresher
	recorder FetchRecorder
	limiter  *rate.Limiter

	mu      sync.Mutex
	warmup  *time.Timer
	stopped bool
}

// New rps <= 0 表示不限速；recorder 可为 nil
func New(spec string, sources SourceLister, loader Refresher, recorder FetchRecorder, rps float64) (*Scheduler, error) {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	s := &Scheduler{
		cron:     cron.New(),
		sources:  sources,
		loader:   loader,
		recorder: recorder,
		limiter:  rate.NewLimiter(limit, 1),
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// startupDelay 延迟执行首轮预热，避免与启动后的第一批请求争抢
const startupDelay = 15 * time.Second

func (s *Scheduler) Start() {
	s.startAfter(startupDelay)
}

func (s *Scheduler) startAfter(delay time.Duration) {
	s.cron.Start()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.warmup = time.AfterFunc(delay, s.runOnce)
}

// Stop 取消尚未触发的首轮预热，停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.warmup != nil {
		s.warmup.Stop()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，返回成功刷新的站点数
func (s *Scheduler) RunOnce() int {
	return s.run(context.Background())
}

func (s *Scheduler) runOnce() {
	s.run(context.Background())
}

func (s *Scheduler) run(ctx context.Context) int {
	log.Println("start warmup job...")

	urls, err := s.sources.ListSourceURLs()
	if err != nil {
		log.Printf("warmup: list sources error: %v", err)
		return 0
	}

	ok := 0
	for _, raw := range urls {
		// 与渲染路径使用同样的规范化，保证缓存键一致
		u, err := crosspost.NormalizeSourceURL(raw)
		if err != nil {
			log.Printf("warmup: skip %q: %v", raw, err)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			log.Printf("warmup: limiter: %v", err)
			break
		}

		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		posts, err := s.loader.Refresh(fctx, u)
		cancel()

		if s.recorder != nil {
			if rerr := s.recorder.RecordFetch(raw, posts, err); rerr != nil {
				log.Printf("warmup: record %s: %v", u, rerr)
			}
		}
		if err != nil {
			log.Printf("warmup %s error: %v", u, err)
			continue
		}
		ok++
		log.Printf("warmup %s done, posts=%d", u, len(posts))
	}

	log.Printf("warmup job done (%d/%d sources)", ok, len(urls))
	return ok
}
