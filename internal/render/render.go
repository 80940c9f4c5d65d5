package render

import (
	"context"
	"html/template"
	"log"
	"strings"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/processor"
	"golang.org/x/sync/errgroup"
)

// MediaResolver 解析文章的特色图片；返回 false 时该篇不输出图片块
type MediaResolver interface {
	Resolve(ctx context.Context, sourceURL string, mediaID int64, size string) (*collector.MediaAsset, bool)
}

var postTmpl = template.Must(template.New("post").Parse(
	`<h2>{{.N}}</h2>` +
		`<div class="{{.Class}}" id="{{.ID}}">` +
		`{{with .Image}}<figure><img class="featured-image" src="{{.SourceURL}}" alt="{{.AltText}}" /><figcaption>{{.Caption}}</figcaption></figure>{{end}}` +
		`<h3>{{.Title}}</h3>` +
		`<div class="content">{{.Excerpt}}</div>` +
		`<div class="post-meta"><span class="date">{{.Date}}</span>{{with .Author}}<span class="author">{{.}}</span>{{end}}</div>` +
		`<a href="{{.Link}}">{{.ReadMore}}</a>` +
		`</div>`))

type imageView struct {
	SourceURL string
	AltText   string
	Caption   string
}

type postView struct {
	N        int
	Class    string
	ID       int64
	Image    *imageView
	Title    string
	Excerpt  string
	Date     string
	Author   string
	Link     string
	ReadMore string
}

// Renderer 把文章列表拼成 HTML 片段，所有远端文本都经过模板转义
type Renderer struct {
	media MediaResolver
	// MediaConcurrency > 1 时并发解析图片，输出顺序不变
	MediaConcurrency int
}

func NewRenderer(media MediaResolver) *Renderer {
	return &Renderer{media: media, MediaConcurrency: 1}
}

// Render 返回拼好的 HTML 以及最后一篇输出的文章（没有输出时为 nil）
func (r *Renderer) Render(ctx context.Context, posts []collector.Post, opts Options) (string, *collector.Post) {
	selected := make([]collector.Post, 0, len(posts))
	count := 0
	for _, p := range posts {
		if count == opts.Number {
			break
		}
		count++
		selected = append(selected, p)
	}
	if len(selected) == 0 {
		return "", nil
	}

	images := r.resolveImages(ctx, selected, opts)

	var b strings.Builder
	for i, p := range selected {
		view := postView{
			N:        i + 1,
			Class:    opts.Class,
			ID:       p.ID,
			Title:    processor.PlainText(p.Title),
			Excerpt:  processor.ReduceContent(p.Content, opts.Characters),
			Date:     processor.HumanDate(p.PublishedAt),
			Author:   strings.TrimSpace(p.AuthorName),
			Link:     p.Link,
			ReadMore: opts.ReadMoreText,
		}
		if img := images[i]; img != nil {
			view.Image = &imageView{
				SourceURL: img.SourceURL,
				AltText:   img.AltText,
				Caption:   processor.PlainText(img.Caption),
			}
		}
		if err := postTmpl.Execute(&b, view); err != nil {
			log.Printf("render: post %d: %v", p.ID, err)
		}
	}

	last := selected[len(selected)-1]
	return b.String(), &last
}

func (r *Renderer) resolveImages(ctx context.Context, posts []collector.Post, opts Options) []*collector.MediaAsset {
	images := make([]*collector.MediaAsset, len(posts))
	if r.media == nil {
		return images
	}

	if r.MediaConcurrency <= 1 {
		for i, p := range posts {
			if a, ok := r.media.Resolve(ctx, opts.SourceURL, p.FeaturedMedia, opts.ImageSize); ok {
				images[i] = a
			}
		}
		return images
	}

	var g errgroup.Group
	g.SetLimit(r.MediaConcurrency)
	for i, p := range posts {
		i, p := i, p
		g.Go(func() error {
			if a, ok := r.media.Resolve(ctx, opts.SourceURL, p.FeaturedMedia, opts.ImageSize); ok {
				images[i] = a
			}
			return nil
		})
	}
	_ = g.Wait()
	return images
}
