// 包 model 定义导出流水线的数据模型（出版物/文章/脚注/任务结果）。
package model

import "time"

// Publication 表示一个 newsletter 出版物的身份信息。
type Publication struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// PostSummary 为发现阶段的文章摘要记录。
// ID 为稳定标识（无更强标识时可直接使用 URL）；
// PublishedAt 保留原始字符串，排序时再惰性解析。
type PostSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	PublishedAt string   `json:"publishedAt"`
	URL         string   `json:"url"`
	Author      string   `json:"author,omitempty"`
	CoverURL    string   `json:"coverUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// PostContent 为内容提取的最终产物：
// 精化后的摘要 + 两种独立渲染结果。创建后不再修改。
type PostContent struct {
	Summary            PostSummary
	PlainText          string
	EpubBody           string
	ReadingTimeMinutes int // 0 表示未识别
	SummaryText        string
}

// FootnoteEntry 为一条确认的脚注。
// Number 自 1 起按正文首次引用顺序连续编号，是两种渲染共用的唯一编号来源。
type FootnoteEntry struct {
	ID     string
	Number int
	Text   string
}

// ExportFailure 记录单篇文章的失败原因。
type ExportFailure struct {
	PostID string `json:"postId"`
	Reason string `json:"reason"`
}

// ExportResult 为一次导出任务的结果，由编排器增量组装、一次性返回。
// Succeeded 按导出顺序记录成功文章的 id。
type ExportResult struct {
	Succeeded   []string        `json:"succeeded"`
	Failed      []ExportFailure `json:"failed"`
	OutputFiles []string        `json:"outputFiles"`
	Warnings    []string        `json:"warnings"`
	FinishedAt  time.Time       `json:"finishedAt"`
}

// 导出格式。
type Format string

const (
	FormatTXT  Format = "txt"
	FormatEPUB Format = "epub"
)

// 文章选择模式。
type SelectMode string

const (
	SelectEntireProfile SelectMode = "entire_profile"
	SelectSpecificPosts SelectMode = "specific_posts"
)

// 排序模式。
type OrderMode string

const (
	OrderByDate OrderMode = "date"
	OrderManual OrderMode = "manual"
)

// 排序方向。
type SortDirection string

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// 输出粒度：每篇一个文件，或合并为单文件。
type Granularity string

const (
	GranularityPerPost  Granularity = "per_post"
	GranularityCombined Granularity = "combined"
)

// 封面来源。
type CoverMode string

const (
	CoverPublication CoverMode = "publication"
	CoverCustom      CoverMode = "custom"
)

// 元数据字段选择（未选字段不输出）。
type MetadataField string

const (
	FieldTitle       MetadataField = "title"
	FieldAuthor      MetadataField = "author"
	FieldPublishedAt MetadataField = "published_at"
	FieldURL         MetadataField = "url"
	FieldTags        MetadataField = "tags"
	FieldSubtitle    MetadataField = "subtitle"
	FieldReadingTime MetadataField = "reading_time"
	FieldSummary     MetadataField = "summary"
)

// HasField 判断字段是否被选中。
func HasField(fields []MetadataField, f MetadataField) bool {
	for _, v := range fields {
		if v == f {
			return true
		}
	}
	return false
}

// ParseTimeFlexible 宽松解析发布时间（RFC3339 优先，回退 RFC1123 变体）。
// 解析失败返回零值，排序层将其视为 epoch 原点。
func ParseTimeFlexible(value string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
