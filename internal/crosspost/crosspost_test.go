package crosspost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/LJTian/BlogCrosspost/internal/cache"
	"github.com/LJTian/BlogCrosspost/internal/collector"
	"github.com/LJTian/BlogCrosspost/internal/render"
)

// fakeSite 模拟一个 WordPress 站点，n 篇文章，统计列表接口被请求的次数
type fakeSite struct {
	srv          *httptest.Server
	listingCalls atomic.Int32
	mediaCalls   atomic.Int32
}

func newFakeSite(t *testing.T, n int, status int) *fakeSite {
	t.Helper()
	site := &fakeSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		site.listingCalls.Add(1)
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"code":"rest_no_route","message":"No route <b>found</b>"}`)
			return
		}
		items := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			items = append(items, fmt.Sprintf(
				`{"id":%d,"date":"2024-03-05T10:15:00","link":"https://blog.example/p/%d",`+
					`"title":{"rendered":"Post %d"},"content":{"rendered":"<p>Body of post number %d</p>"},"featured_media":%d}`,
				i, i, i, i, i))
		}
		fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
	})
	mux.HandleFunc("/wp-json/wp/v2/media/", func(w http.ResponseWriter, r *http.Request) {
		site.mediaCalls.Add(1)
		if strings.HasSuffix(r.URL.Path, "/2") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"guid":{"rendered":"https://blog.example/img.jpg"},"caption":{"rendered":""},"alt_text":"alt"}`)
	})
	site.srv = httptest.NewServer(mux)
	t.Cleanup(site.srv.Close)
	return site
}

func newTestService() *Service {
	client := collector.NewHTTPClient(0)
	loader := cache.NewLoader(cache.NewMemoryStore(), collector.NewPostsFetcher(client))
	return NewService(loader, render.NewRenderer(collector.NewMediaClient(client)), nil)
}

func TestRenderMissingURL(t *testing.T) {
	svc := newTestService()
	for _, params := range []map[string]string{nil, {}, {"url": "  "}, {"number": "2"}} {
		if got := svc.Render(context.Background(), params); got != MissingURLHTML {
			t.Fatalf("Render(%v) = %q, want missing url text", params, got)
		}
	}
}

func TestMissingURLHookOverrides(t *testing.T) {
	svc := newTestService()
	svc.Hooks().OnMissingURL("custom", DefaultPriority, func(html string) string {
		return "<p>custom</p>"
	})
	if got := svc.Render(context.Background(), nil); got != "<p>custom</p>" {
		t.Fatalf("Render = %q, want hook output", got)
	}
}

func TestRenderEndToEndCounts(t *testing.T) {
	cases := []struct {
		posts  int
		number string
		want   int
	}{
		{2, "3", 2},
		{5, "3", 3},
		{5, "", 3},
		{5, "5", 5},
	}
	for _, c := range cases {
		site := newFakeSite(t, c.posts, http.StatusOK)
		svc := newTestService()
		params := map[string]string{"url": site.srv.URL}
		if c.number != "" {
			params["number"] = c.number
		}
		out := svc.Render(context.Background(), params)
		if got := strings.Count(out, "<h2>"); got != c.want {
			t.Fatalf("posts=%d number=%q: got %d fragments, want %d\n%s", c.posts, c.number, got, c.want, out)
		}
		if n := int(site.mediaCalls.Load()); n != c.want {
			t.Fatalf("media fetched %d times, want %d", n, c.want)
		}
		// 第 2 篇的图片接口返回 404，只影响该篇
		if c.want >= 2 && strings.Count(out, "<figure>") != c.want-1 {
			t.Fatalf("expected %d image blocks in %s", c.want-1, out)
		}
	}
}

func TestRenderServesRepeatFromCache(t *testing.T) {
	site := newFakeSite(t, 3, http.StatusOK)
	svc := newTestService()
	params := map[string]string{"url": site.srv.URL}

	first := svc.Render(context.Background(), params)
	second := svc.Render(context.Background(), params)
	if first != second {
		t.Fatalf("renders differ within TTL")
	}
	if n := site.listingCalls.Load(); n != 1 {
		t.Fatalf("listing fetched %d times, want 1", n)
	}

	// 末尾带斜杠的同一站点共享缓存
	svc.Render(context.Background(), map[string]string{"url": site.srv.URL + "/"})
	if n := site.listingCalls.Load(); n != 1 {
		t.Fatalf("normalized url should hit the cache, listing fetched %d times", n)
	}
}

func TestRenderFetchErrorComment(t *testing.T) {
	site := newFakeSite(t, 0, http.StatusNotFound)
	svc := newTestService()

	var hookErr error
	svc.Hooks().OnFetchError("capture", DefaultPriority, func(html string, err error) string {
		hookErr = err
		return html
	})

	out := svc.Render(context.Background(), map[string]string{"url": site.srv.URL})
	if !strings.HasPrefix(out, "<!-- [blogcrosspost] ") || !strings.HasSuffix(out, " -->") {
		t.Fatalf("expected diagnostic comment, got %q", out)
	}
	if !strings.Contains(out, "status 404") {
		t.Fatalf("diagnostic should mention status: %q", out)
	}
	var fe *collector.FetchError
	if !errors.As(hookErr, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("hook should receive the FetchError, got %v", hookErr)
	}

	// 错误不缓存，再次渲染会重新请求
	svc.Render(context.Background(), map[string]string{"url": site.srv.URL})
	if n := site.listingCalls.Load(); n != 2 {
		t.Fatalf("listing fetched %d times, want 2", n)
	}
}

type errFetcher struct{ err error }

func (f errFetcher) Fetch(context.Context, string) ([]collector.Post, error) { return nil, f.err }

func TestErrorCommentIsEscaped(t *testing.T) {
	svc := NewService(errFetcher{errors.New(`bad --> <script>alert(1)</script>`)}, render.NewRenderer(nil), nil)
	out := svc.Render(context.Background(), map[string]string{"url": "https://blog.example"})
	if strings.Count(out, "-->") != 1 || strings.Contains(out, "<script>") {
		t.Fatalf("error text not escaped: %q", out)
	}
}

func TestRenderInvalidURL(t *testing.T) {
	svc := newTestService()
	out := svc.Render(context.Background(), map[string]string{"url": "ftp://blog.example"})
	if !strings.HasPrefix(out, "<!-- [blogcrosspost] ") || !strings.Contains(out, "invalid url") {
		t.Fatalf("expected invalid url diagnostic, got %q", out)
	}
}

func TestOutputHookReceivesOptionsAndLastPost(t *testing.T) {
	site := newFakeSite(t, 5, http.StatusOK)
	svc := newTestService()

	var gotOpts render.Options
	var gotLast *collector.Post
	svc.Hooks().OnOutput("wrap", 20, func(html string, opts render.Options, last *collector.Post) string {
		gotOpts, gotLast = opts, last
		return "<section>" + html + "</section>"
	})
	svc.Hooks().OnOutput("first", 5, func(html string, opts render.Options, last *collector.Post) string {
		return html + "<!-- first -->"
	})

	out := svc.Render(context.Background(), map[string]string{"url": site.srv.URL, "maxPosts": "2", "cssClass": "mine"})
	if !strings.HasPrefix(out, "<section>") || !strings.HasSuffix(out, "<!-- first --></section>") {
		t.Fatalf("hooks applied in wrong order: %q", out)
	}
	if gotOpts.Number != 2 || gotOpts.Class != "mine" || gotOpts.SourceURL != site.srv.URL {
		t.Fatalf("unexpected options passed to hook: %+v", gotOpts)
	}
	if gotLast == nil || gotLast.ID != 2 {
		t.Fatalf("last post = %+v, want id 2", gotLast)
	}

	if n := svc.Hooks().Remove("wrap"); n != 1 {
		t.Fatalf("Remove returned %d, want 1", n)
	}
	out = svc.Render(context.Background(), map[string]string{"url": site.srv.URL})
	if strings.HasPrefix(out, "<section>") {
		t.Fatalf("removed hook still applied")
	}
}

func TestParseOptions(t *testing.T) {
	opts := ParseOptions(map[string]string{
		"URL":          " https://blog.example ",
		"image_size":   "thumbnail",
		"characters":   "40",
		"readmoretext": "More",
		"number":       "abc",
		"class":        "c",
		"unknown":      "x",
	})
	want := render.Options{
		SourceURL:    "https://blog.example",
		ImageSize:    "thumbnail",
		Characters:   40,
		ReadMoreText: "More",
		Number:       render.DefaultNumber,
		Class:        "c",
	}
	if opts != want {
		t.Fatalf("ParseOptions = %+v, want %+v", opts, want)
	}

	def := ParseOptions(nil)
	if def != render.DefaultOptions() {
		t.Fatalf("ParseOptions(nil) = %+v, want defaults", def)
	}

	alias := ParseOptions(map[string]string{"sourceUrl": "a.example", "excerptLength": "9", "readMoreLabel": "Go", "maxPosts": "1", "imageSize": "medium"})
	if alias.SourceURL != "a.example" || alias.Characters != 9 || alias.ReadMoreText != "Go" || alias.Number != 1 || alias.ImageSize != "medium" {
		t.Fatalf("aliases not applied: %+v", alias)
	}
}

func TestNormalizeSourceURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"https://blog.example/", "https://blog.example", nil},
		{"blog.example", "http://blog.example", nil},
		{"https://blog.example/sub/?q=1#x", "https://blog.example/sub", nil},
		{"", "", ErrMissingURL},
		{"ftp://blog.example", "", ErrInvalidURL},
		{"http://", "", ErrInvalidURL},
	}
	for _, c := range cases {
		got, err := NormalizeSourceURL(c.in)
		if c.wantErr != nil {
			var ve *ValidationError
			if !errors.Is(err, c.wantErr) || !errors.As(err, &ve) {
				t.Fatalf("NormalizeSourceURL(%q) error = %v, want %v", c.in, err, c.wantErr)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("NormalizeSourceURL(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
	}
}

func TestParseShortcodeAttrs(t *testing.T) {
	got := ParseShortcodeAttrs(` url="https://a.example" NUMBER='2' class=big readmoretext="Read it" flag /`)
	want := map[string]string{
		"url":          "https://a.example",
		"number":       "2",
		"class":        "big",
		"readmoretext": "Read it",
		"0":            "flag",
	}
	if len(got) != len(want) {
		t.Fatalf("ParseShortcodeAttrs = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("attr %q = %q, want %q", k, got[k], v)
		}
	}
}

func TestExpandShortcodes(t *testing.T) {
	site := newFakeSite(t, 5, http.StatusOK)
	svc := newTestService()

	content := `<p>Intro</p>[blogcrosspost url="` + site.srv.URL + `" number="1"]<p>Mid</p>[blogcrosspost]` +
		`<p>Literal [[blogcrosspost url="x"]]</p>[blogcrosspostx]`
	out := svc.Expand(context.Background(), content)

	if strings.Count(out, "<h2>") != 1 {
		t.Fatalf("expected one rendered post: %s", out)
	}
	if !strings.Contains(out, MissingURLHTML) {
		t.Fatalf("bare tag should render missing url text: %s", out)
	}
	if !strings.Contains(out, `<p>Literal [blogcrosspost url="x"]</p>`) {
		t.Fatalf("escaped tag should be kept literally: %s", out)
	}
	if !strings.HasPrefix(out, "<p>Intro</p>") || !strings.HasSuffix(out, "[blogcrosspostx]") {
		t.Fatalf("surrounding content changed: %s", out)
	}
}

func TestOutputHookLastPostIsLastRendered(t *testing.T) {
	site := newFakeSite(t, 5, http.StatusOK)
	svc := newTestService()

	var gotLast *collector.Post
	called := false
	svc.Hooks().OnOutput("capture", DefaultPriority, func(html string, opts render.Options, last *collector.Post) string {
		called, gotLast = true, last
		return html
	})

	svc.Render(context.Background(), map[string]string{"url": site.srv.URL, "number": "3"})
	if gotLast == nil || gotLast.ID != 3 {
		t.Fatalf("number=3: last post = %+v, want id 3", gotLast)
	}

	called = false
	svc.Render(context.Background(), map[string]string{"url": site.srv.URL, "number": "0"})
	if !called || gotLast != nil {
		t.Fatalf("number=0: called=%v last=%+v, want nil last", called, gotLast)
	}
}
