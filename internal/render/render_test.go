package render

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
)

type fakeMedia struct {
	mu     sync.Mutex
	assets map[int64]*collector.MediaAsset
	calls  []int64
	delay  time.Duration
}

func (f *fakeMedia) Resolve(ctx context.Context, sourceURL string, mediaID int64, size string) (*collector.MediaAsset, bool) {
	if f.delay > 0 {
		// 让编号小的请求更晚返回，用于验证并发时顺序不变
		time.Sleep(f.delay * time.Duration(10-mediaID%10))
	}
	f.mu.Lock()
	f.calls = append(f.calls, mediaID)
	f.mu.Unlock()
	a, ok := f.assets[mediaID]
	return a, ok
}

func post(id int64, title string) collector.Post {
	return collector.Post{
		ID:          id,
		Title:       title,
		Content:     "<p>Some long content here</p>",
		PublishedAt: time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC),
		Link:        "https://blog.example/a",
	}
}

func TestRenderSinglePostMarkup(t *testing.T) {
	p := post(11, "Hello &amp; <em>world</em>")
	p.FeaturedMedia = 5
	p.AuthorName = "Ann"
	media := &fakeMedia{assets: map[int64]*collector.MediaAsset{
		5: {SourceURL: "https://blog.example/i.jpg", AltText: `a "quote"`, Caption: "<p>Cap</p>"},
	}}

	opts := DefaultOptions()
	opts.SourceURL = "https://blog.example"
	html, last := NewRenderer(media).Render(context.Background(), []collector.Post{p}, opts)

	want := `<h2>1</h2><div class="blogcrosspost-plugin blog-crosspost-item" id="11">` +
		`<figure><img class="featured-image" src="https://blog.example/i.jpg" alt="a &#34;quote&#34;" /><figcaption>Cap</figcaption></figure>` +
		`<h3>Hello &amp; world</h3>` +
		`<div class="content">Some long content here</div>` +
		`<div class="post-meta"><span class="date">Tuesday 5th Mar 2024 10:15am</span><span class="author">Ann</span></div>` +
		`<a href="https://blog.example/a">Read more</a></div>`
	if html != want {
		t.Fatalf("Render =\n%s\nwant\n%s", html, want)
	}
	if last == nil || last.ID != 11 {
		t.Fatalf("last post = %+v, want id 11", last)
	}
}

func TestRenderRespectsNumber(t *testing.T) {
	posts := []collector.Post{post(1, "a"), post(2, "b"), post(3, "c"), post(4, "d"), post(5, "e")}

	cases := []struct {
		number int
		want   int
	}{
		{3, 3},
		{10, 5},
		{1, 1},
		{0, 0},
		{-1, 5},
	}
	for _, c := range cases {
		opts := DefaultOptions()
		opts.Number = c.number
		html, last := NewRenderer(nil).Render(context.Background(), posts, opts)
		if got := strings.Count(html, "<h2>"); got != c.want {
			t.Fatalf("number=%d: got %d fragments, want %d", c.number, got, c.want)
		}
		if c.want == 0 {
			if html != "" || last != nil {
				t.Fatalf("number=0 should render nothing, got %q %+v", html, last)
			}
			continue
		}
		if last.ID != int64(c.want) {
			t.Fatalf("number=%d: last id = %d, want %d", c.number, last.ID, c.want)
		}
	}
}

func TestRenderKeepsInputOrder(t *testing.T) {
	posts := []collector.Post{post(30, "third"), post(10, "first"), post(20, "second")}
	html, _ := NewRenderer(nil).Render(context.Background(), posts, DefaultOptions())

	i30 := strings.Index(html, `id="30"`)
	i10 := strings.Index(html, `id="10"`)
	i20 := strings.Index(html, `id="20"`)
	if !(i30 < i10 && i10 < i20) {
		t.Fatalf("fragments out of order: %d %d %d", i30, i10, i20)
	}
	for i, n := range []string{"<h2>1</h2>", "<h2>2</h2>", "<h2>3</h2>"} {
		if !strings.Contains(html, n) {
			t.Fatalf("missing counter heading %d", i+1)
		}
	}
}

func TestRenderEscapesRemoteText(t *testing.T) {
	p := post(1, `<script>alert("x")</script>Title`)
	p.Content = `<p>Content with <b>bold</b> &amp; <img src=x onerror=alert(1)> tags inside</p>`
	p.Link = "javascript:alert(1)"
	p.AuthorName = `<i>Eve</i>`

	opts := DefaultOptions()
	opts.Class = `x" onclick="evil`
	opts.ReadMoreText = "<b>More</b>"
	html, _ := NewRenderer(nil).Render(context.Background(), []collector.Post{p}, opts)

	for _, bad := range []string{"<script", "<b>", "<img", "<i>", `onclick="evil"`, "javascript:"} {
		if strings.Contains(html, bad) {
			t.Fatalf("unescaped %q in output: %s", bad, html)
		}
	}
	if !strings.Contains(html, `<div class="content">Content with bold &amp; tags inside</div>`) {
		t.Fatalf("unexpected excerpt: %s", html)
	}
	if !strings.Contains(html, "&lt;b&gt;More&lt;/b&gt;") {
		t.Fatalf("read more text should be escaped: %s", html)
	}
}

func TestRenderOmitsImageOnMediaFailure(t *testing.T) {
	p := post(1, "t")
	p.FeaturedMedia = 99
	html, _ := NewRenderer(&fakeMedia{}).Render(context.Background(), []collector.Post{p}, DefaultOptions())
	if strings.Contains(html, "<figure>") {
		t.Fatalf("image block should be omitted: %s", html)
	}
	if !strings.Contains(html, "<h3>t</h3>") {
		t.Fatalf("post should still render: %s", html)
	}
}

func TestRenderShortContentAndMissingAuthor(t *testing.T) {
	p := post(1, "t")
	p.Content = "tiny"
	html, _ := NewRenderer(nil).Render(context.Background(), []collector.Post{p}, DefaultOptions())
	if !strings.Contains(html, `<div class="content"></div>`) {
		t.Fatalf("short content should give an empty excerpt: %s", html)
	}
	if strings.Contains(html, `class="author"`) {
		t.Fatalf("author span should be omitted: %s", html)
	}
}

func TestRenderParallelMediaKeepsOrder(t *testing.T) {
	assets := map[int64]*collector.MediaAsset{}
	posts := make([]collector.Post, 0, 5)
	for i := int64(1); i <= 5; i++ {
		p := post(i, "t")
		p.FeaturedMedia = i
		posts = append(posts, p)
		assets[i] = &collector.MediaAsset{SourceURL: "https://blog.example/img" + string(rune('0'+i)) + ".jpg"}
	}
	media := &fakeMedia{assets: assets, delay: time.Millisecond}
	r := NewRenderer(media)
	r.MediaConcurrency = 4

	opts := DefaultOptions()
	opts.Number = 5
	html, _ := r.Render(context.Background(), posts, opts)

	prev := -1
	for i := 1; i <= 5; i++ {
		idx := strings.Index(html, "img"+string(rune('0'+i))+".jpg")
		if idx < 0 || idx < prev {
			t.Fatalf("image %d missing or out of order in %s", i, html)
		}
		prev = idx
	}
	if len(media.calls) != 5 {
		t.Fatalf("media resolved %d times, want 5", len(media.calls))
	}
}

func TestRenderEmpty(t *testing.T) {
	html, last := NewRenderer(nil).Render(context.Background(), nil, DefaultOptions())
	if html != "" || last != nil {
		t.Fatalf("empty input should render nothing")
	}
}
