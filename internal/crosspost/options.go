package crosspost

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/LJTian/BlogCrosspost/internal/render"
)

var (
	ErrMissingURL = errors.New("missing url")
	ErrInvalidURL = errors.New("invalid url")
)

// ValidationError 携带出错的参数名和值
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// 短代码参数名与驼峰别名都映射到同一字段
var paramAliases = map[string]string{
	"url":           "url",
	"sourceurl":     "url",
	"image_size":    "image_size",
	"imagesize":     "image_size",
	"characters":    "characters",
	"excerptlength": "characters",
	"readmoretext":  "readmoretext",
	"readmorelabel": "readmoretext",
	"number":        "number",
	"maxposts":      "number",
	"class":         "class",
	"cssclass":      "class",
}

// ParseOptions 把命名参数合并到默认值上，未知参数忽略，数字解析失败时保留默认值
func ParseOptions(params map[string]string) render.Options {
	opts := render.DefaultOptions()
	for k, v := range params {
		name, ok := paramAliases[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			continue
		}
		switch name {
		case "url":
			opts.SourceURL = strings.TrimSpace(v)
		case "image_size":
			if v = strings.TrimSpace(v); v != "" {
				opts.ImageSize = v
			}
		case "characters":
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				opts.Characters = n
			}
		case "readmoretext":
			opts.ReadMoreText = v
		case "number":
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				opts.Number = n
			}
		case "class":
			opts.Class = v
		}
	}
	return opts
}

// NormalizeSourceURL 校验并规范站点地址：没有协议时补 http://，去掉末尾的 /
func NormalizeSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "url", Value: raw, Wrapped: ErrMissingURL}
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: "url", Value: raw, Wrapped: ErrInvalidURL}
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", &ValidationError{Field: "url", Value: raw, Wrapped: ErrInvalidURL}
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
