package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	postsPath = "/wp-json/wp/v2/posts"
	mediaPath = "/wp-json/wp/v2/media"

	// DefaultTimeout 与 WordPress wp_remote_get 的默认超时保持一致
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 4 << 20 // 4MB
	userAgent        = "BlogCrosspostBot/1.0"
)

// Post 远端站点文章列表中的一条，字段按 REST API 映射；json tag 用于缓存序列化
type Post struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	FeaturedMedia int64     `json:"featuredMedia,omitempty"`
	PublishedAt   time.Time `json:"publishedAt"`
	Link          string    `json:"link"`
	AuthorName    string    `json:"authorName,omitempty"`
}

// MediaAsset 文章的特色图片，渲染时按需解析，不缓存
type MediaAsset struct {
	SourceURL string
	Caption   string
	AltText   string
}

// Fetcher 抽象文章列表的获取
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]Post, error)
}

// FetchError 远端返回非 200、无法解析或空数据。
// Body 在解析失败时为原始字符串，否则为解析后的值。
type FetchError struct {
	StatusCode int
	Body       any
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("invalid data returned from external website (status %d)", e.StatusCode)
}

// PostsURL 返回文章列表接口地址
func PostsURL(sourceURL string) string {
	return strings.TrimRight(sourceURL, "/") + postsPath
}

// MediaURL 返回单个媒体接口地址
func MediaURL(sourceURL string, mediaID int64) string {
	return fmt.Sprintf("%s%s/%d", strings.TrimRight(sourceURL, "/"), mediaPath, mediaID)
}

// NewHTTPClient 构造带超时的客户端，timeout <= 0 时使用 DefaultTimeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func newGetRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
