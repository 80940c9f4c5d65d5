package render

const (
	DefaultImageSize    = "full"
	DefaultCharacters   = 150
	DefaultReadMoreText = "Read more"
	DefaultNumber       = 3
	DefaultClass        = "blogcrosspost-plugin blog-crosspost-item"
)

// Options 一次渲染的参数。除 SourceURL 外都有默认值。
type Options struct {
	SourceURL    string `json:"url"`
	ImageSize    string `json:"imageSize"`
	Characters   int    `json:"characters"`
	ReadMoreText string `json:"readMoreText"`
	// Number 为 0 时不输出任何文章，为负数时不限制条数
	Number int    `json:"number"`
	Class  string `json:"class"`
}

func DefaultOptions() Options {
	return Options{
		ImageSize:    DefaultImageSize,
		Characters:   DefaultCharacters,
		ReadMoreText: DefaultReadMoreText,
		Number:       DefaultNumber,
		Class:        DefaultClass,
	}
}
