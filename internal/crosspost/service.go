// Package crosspost 是短代码的入口：合并参数、读缓存或拉取远端文章、渲染并经过拦截点输出。
// 任何失败都会降级成可直接输出的字符串，不会返回错误。
package crosspost

import (
	"context"
	"html"
	"log"
	"strings"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/render"
)

// MissingURLHTML 未提供 url 参数时的提示
const MissingURLHTML = `<p>Add the Missing URL. The shortcode should be as such [blogcrosspost url="add url link goes here"]</p>`

type Service struct {
	posts    collector.Fetcher
	renderer *render.Renderer
	hooks    *Hooks
}

// NewService posts 通常是 cache.Loader，这样同一站点在 TTL 内只请求一次
func NewService(posts collector.Fetcher, renderer *render.Renderer, hooks *Hooks) *Service {
	if hooks == nil {
		hooks = NewHooks()
	}
	return &Service{posts: posts, renderer: renderer, hooks: hooks}
}

func (s *Service) Hooks() *Hooks {
	return s.hooks
}

// Render 接收短代码形式的命名参数
func (s *Service) Render(ctx context.Context, params map[string]string) string {
	return s.RenderOptions(ctx, ParseOptions(params))
}

func (s *Service) RenderOptions(ctx context.Context, opts render.Options) string {
	if strings.TrimSpace(opts.SourceURL) == "" {
		return s.hooks.applyMissingURL(MissingURLHTML)
	}

	sourceURL, err := NormalizeSourceURL(opts.SourceURL)
	if err != nil {
		return s.hooks.applyFetchError(errorComment(err), err)
	}
	opts.SourceURL = sourceURL

	posts, err := s.posts.Fetch(ctx, sourceURL)
	if err != nil {
		log.Printf("crosspost: fetch %s: %v", sourceURL, err)
		return s.hooks.applyFetchError(errorComment(err), err)
	}

	out, last := s.renderer.Render(ctx, posts, opts)
	return s.hooks.applyOutput(out, opts, last)
}

func errorComment(err error) string {
	return "<!-- [blogcrosspost] " + html.EscapeString(err.Error()) + " -->"
}
