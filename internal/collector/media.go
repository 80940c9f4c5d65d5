package collector

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// FullSize 表示直接使用媒体的原始地址（guid）
const FullSize = "full"

type wpMedia struct {
	GUID         rendered `json:"guid"`
	Caption      rendered `json:"caption"`
	AltText      string   `json:"alt_text"`
	MediaDetails struct {
		Sizes map[string]struct {
			SourceURL string `json:"source_url"`
		} `json:"sizes"`
	} `json:"media_details"`
}

// MediaClient 按 featured_media 解析单张图片；任何失败都只影响该篇文章的图片区域
type MediaClient struct {
	client *http.Client
}

func NewMediaClient(client *http.Client) *MediaClient {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &MediaClient{client: client}
}

// Resolve 返回 (nil, false) 表示不输出图片块
func (m *MediaClient) Resolve(ctx context.Context, sourceURL string, mediaID int64, size string) (*MediaAsset, bool) {
	if mediaID <= 0 {
		return nil, false
	}

	apiURL := MediaURL(sourceURL, mediaID)
	req, err := newGetRequest(ctx, apiURL)
	if err != nil {
		log.Printf("media: build request %s: %v", apiURL, err)
		return nil, false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("media: fetch %s: %v", apiURL, err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("media: fetch %s: unexpected status %d", apiURL, resp.StatusCode)
		return nil, false
	}

	var data wpMedia
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&data); err != nil {
		log.Printf("media: decode %s: %v", apiURL, err)
		return nil, false
	}

	src := selectImageURL(&data, size)
	if src == "" {
		return nil, false
	}
	return &MediaAsset{
		SourceURL: src,
		Caption:   data.Caption.Rendered,
		AltText:   data.AltText,
	}, true
}

// selectImageURL 请求的尺寸不存在时返回空串，该篇不输出图片
func selectImageURL(m *wpMedia, size string) string {
	if size == "" || size == FullSize {
		return m.GUID.Rendered
	}
	return m.MediaDetails.Sizes[size].SourceURL
}
