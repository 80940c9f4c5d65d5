package processor

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// minContentRunes 正文不超过该长度时不输出摘要
const minContentRunes = 10

// ReduceContent 截取正文前 characters 个字符并去掉标记，得到纯文本摘要。
// 先截断再去标签，被截断的半个标签会被解析器丢弃。转义交给渲染层。
func ReduceContent(content string, characters int) string {
	rs := []rune(content)
	if len(rs) <= minContentRunes || characters <= 0 {
		return ""
	}
	if len(rs) > characters {
		rs = rs[:characters]
	}
	return PlainText(string(rs))
}

// PlainText 去掉 HTML 标签（连同 script/style 内容）、解码实体，并把连续空白压成一个空格
func PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace(s)
	}
	doc.Find("script, style").Remove()
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HumanDate 例如 2024-03-05T10:15:00 -> "Tuesday 5th Mar 2024 10:15am"
func HumanDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Monday ") + strconv.Itoa(t.Day()) + ordinalSuffix(t.Day()) + t.Format(" Jan 2006 3:04pm")
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
