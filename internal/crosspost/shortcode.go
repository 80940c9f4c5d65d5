package crosspost

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Tag 短代码名
const Tag = "blogcrosspost"

// [blogcrosspost ...] 或 [blogcrosspost .../]；[[blogcrosspost]] 为转义写法，原样输出内层
var shortcodeRe = regexp.MustCompile(`\[(\[?)` + Tag + `(\s[^\]]*?)?\s*/?\](\]?)`)

// 与 WordPress shortcode_parse_atts 相同的几种写法：name="v"、name='v'、name=v、"v"、'v'、v
var attrRe = regexp.MustCompile(`([\w-]+)\s*=\s*"([^"]*)"(?:\s|$)|([\w-]+)\s*=\s*'([^']*)'(?:\s|$)|([\w-]+)\s*=\s*([^\s'"]+)(?:\s|$)|"([^"]*)"(?:\s|$)|'([^']*)'(?:\s|$)|(\S+)(?:\s|$)`)

// ParseShortcodeAttrs 解析短代码属性；属性名转小写，无名值以其位置序号为键
func ParseShortcodeAttrs(text string) map[string]string {
	attrs := make(map[string]string)
	pos := 0
	for _, m := range attrRe.FindAllStringSubmatch(strings.TrimSpace(text), -1) {
		switch {
		case m[1] != "":
			attrs[strings.ToLower(m[1])] = m[2]
		case m[3] != "":
			attrs[strings.ToLower(m[3])] = m[4]
		case m[5] != "":
			attrs[strings.ToLower(m[5])] = m[6]
		default:
			v := m[7] + m[8] + m[9]
			if v == "/" {
				continue
			}
			attrs[strconv.Itoa(pos)] = v
			pos++
		}
	}
	return attrs
}

// Expand 把 content 中的每个短代码替换为渲染结果
func (s *Service) Expand(ctx context.Context, content string) string {
	return shortcodeRe.ReplaceAllStringFunc(content, func(match string) string {
		m := shortcodeRe.FindStringSubmatch(match)
		if m[1] == "[" && m[3] == "]" {
			return match[1 : len(match)-1]
		}
		return m[1] + s.Render(ctx, ParseShortcodeAttrs(m[2])) + m[3]
	})
}
