package crosspost

import (
	"sort"
	"sync"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/render"
)

// 三个输出拦截点的名称，沿用短代码插件里的 filter 名
const (
	HookMissingURL = "blogcrosspost_missing_url"
	HookFetchError = "blogcrosspost_release_data"
	HookOutput     = "blogcrosspost_link"
)

// DefaultPriority 与 WordPress add_filter 的默认优先级一致
const DefaultPriority = 10

type (
	MissingURLFilter func(html string) string
	FetchErrorFilter func(html string, err error) string
	// OutputFilter 的 last 是最后一篇实际输出的文章，没有输出时为 nil。
	// 插件原来传的是循环停下时的那一项：number=3 时是第 4 篇，number=0 时是第 1 篇，
	// 这里不再传入未输出的文章。
	OutputFilter func(html string, opts render.Options, last *collector.Post) string
)

type registration[F any] struct {
	name     string
	priority int
	fn       F
}

// Hooks 按优先级从小到大依次调用，同优先级按注册顺序；可并发使用
type Hooks struct {
	mu         sync.RWMutex
	missingURL []registration[MissingURLFilter]
	fetchError []registration[FetchErrorFilter]
	output     []registration[OutputFilter]
}

func NewHooks() *Hooks {
	return &Hooks{}
}

func (h *Hooks) OnMissingURL(name string, priority int, fn MissingURLFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.missingURL = insert(h.missingURL, registration[MissingURLFilter]{name, priority, fn})
}

func (h *Hooks) OnFetchError(name string, priority int, fn FetchErrorFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetchError = insert(h.fetchError, registration[FetchErrorFilter]{name, priority, fn})
}

func (h *Hooks) OnOutput(name string, priority int, fn OutputFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.output = insert(h.output, registration[OutputFilter]{name, priority, fn})
}

// Remove 删除所有拦截点上同名的注册，返回删除的数量
func (h *Hooks) Remove(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n, m int
	h.missingURL, m = remove(h.missingURL, name)
	n += m
	h.fetchError, m = remove(h.fetchError, name)
	n += m
	h.output, m = remove(h.output, name)
	return n + m
}

func (h *Hooks) applyMissingURL(html string) string {
	h.mu.RLock()
	list := h.missingURL
	h.mu.RUnlock()
	for _, r := range list {
		html = r.fn(html)
	}
	return html
}

func (h *Hooks) applyFetchError(html string, err error) string {
	h.mu.RLock()
	list := h.fetchError
	h.mu.RUnlock()
	for _, r := range list {
		html = r.fn(html, err)
	}
	return html
}

func (h *Hooks) applyOutput(html string, opts render.Options, last *collector.Post) string {
	h.mu.RLock()
	list := h.output
	h.mu.RUnlock()
	for _, r := range list {
		html = r.fn(html, opts, last)
	}
	return html
}

// insert 返回新切片，读者持有的旧快照不受影响
func insert[F any](list []registration[F], r registration[F]) []registration[F] {
	out := make([]registration[F], 0, len(list)+1)
	out = append(out, list...)
	out = append(out, r)
	sort.SliceStable(out, func(i, j int) bool { return out[i].priority < out[j].priority })
	return out
}

func remove[F any](list []registration[F], name string) ([]registration[F], int) {
	out := make([]registration[F], 0, len(list))
	for _, r := range list {
		if r.name != name {
			out = append(out, r)
		}
	}
	return out, len(list) - len(out)
}
