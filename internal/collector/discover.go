package collector

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// apiRel 是 WordPress 在页面 head 和 Link 头里声明 REST API 根地址用的 rel
const apiRel = "https://api.w.org/"

var ErrAPINotFound = errors.New("rest api root not advertised")

// Discoverer 访问站点首页，找出其声明的 REST API 根地址
type Discoverer struct {
	Timeout time.Duration
}

func (d *Discoverer) Discover(siteURL string) (string, error) {
	log.Printf("discover rest api of %s...", siteURL)

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
	)
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.SetRequestTimeout(timeout)

	var root string

	// Link: <https://example.com/wp-json/>; rel="https://api.w.org/"
	c.OnResponse(func(r *colly.Response) {
		if r.Headers == nil {
			return
		}
		for _, v := range r.Headers.Values("Link") {
			if href := linkHeaderTarget(v, apiRel); href != "" && root == "" {
				root = r.Request.AbsoluteURL(href)
			}
		}
	})

	c.OnHTML(`link[rel="`+apiRel+`"]`, func(e *colly.HTMLElement) {
		if root != "" {
			return
		}
		if href := strings.TrimSpace(e.Attr("href")); href != "" {
			root = e.Request.AbsoluteURL(href)
		}
	})

	if err := c.Visit(siteURL); err != nil {
		return "", fmt.Errorf("collector: discover %s: %w", siteURL, err)
	}
	if root == "" {
		return "", fmt.Errorf("collector: discover %s: %w", siteURL, ErrAPINotFound)
	}
	return root, nil
}

// linkHeaderTarget 从 RFC 8288 Link 头中取出指定 rel 的目标地址
func linkHeaderTarget(header, rel string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, p := range segs[1:] {
			p = strings.TrimSpace(p)
			if !strings.HasPrefix(strings.ToLower(p), "rel=") {
				continue
			}
			v := strings.Trim(strings.TrimSpace(p[len("rel="):]), `"`)
			for _, r := range strings.Fields(v) {
				if r == rel {
					return strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
				}
			}
		}
	}
	return ""
}
