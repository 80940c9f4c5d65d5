package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// wpDateLayout 是 REST API 的 date 字段格式（站点本地时间，不带时区）
const wpDateLayout = "2006-01-02T15:04:05"

type rendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID            int64    `json:"id"`
	Date          string   `json:"date"`
	Link          string   `json:"link"`
	Title         rendered `json:"title"`
	Content       rendered `json:"content"`
	FeaturedMedia int64    `json:"featured_media"`
	AuthorInfo    struct {
		DisplayName string `json:"display_name"`
	} `json:"author_info"`
}

// PostsFetcher 从远端站点的 REST API 拉取最新文章列表，只请求一次，不重试
type PostsFetcher struct {
	client *http.Client
}

func NewPostsFetcher(client *http.Client) *PostsFetcher {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &PostsFetcher{client: client}
}

func (f *PostsFetcher) Fetch(ctx context.Context, sourceURL string) ([]Post, error) {
	apiURL := PostsURL(sourceURL)
	log.Printf("fetch posts from %s...", apiURL)

	req, err := newGetRequest(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("collector: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector: fetch posts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("collector: read posts: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode != http.StatusOK || isEmptyJSON(parsed) {
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: parsed}
	}
	// 错误对象之类的非数组响应同样视为无效数据
	if _, ok := parsed.([]any); !ok {
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: parsed}
	}

	var items []wpPost
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: parsed}
	}

	posts := make([]Post, 0, len(items))
	for _, it := range items {
		posts = append(posts, Post{
			ID:            it.ID,
			Title:         it.Title.Rendered,
			Content:       it.Content.Rendered,
			FeaturedMedia: it.FeaturedMedia,
			PublishedAt:   parseDate(it.Date),
			Link:          it.Link,
			AuthorName:    it.AuthorInfo.DisplayName,
		})
	}
	return posts, nil
}

// parseDate 解析失败时返回零值，渲染层据此输出空日期
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(wpDateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	log.Printf("collector: unparsable post date %q", s)
	return time.Time{}
}

func isEmptyJSON(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case string:
		return x == "" || x == "0"
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}
