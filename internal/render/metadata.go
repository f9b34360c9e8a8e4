package render

import (
	"fmt"
	"strings"

	"go-newsletter-exporter/internal/model"
)

// Pair 为一条展示用元数据（标签 + 已格式化的值）。
type Pair struct {
	Label string
	Value string
}

// FieldPairs 按用户选定字段产出展示元数据，顺序与选定顺序一致。
// 缺失值用 Unknown / N/A 占位，绝不输出空值行。
func FieldPairs(content model.PostContent, fields []model.MetadataField) []Pair {
	s := content.Summary
	var out []Pair
	for _, field := range fields {
		switch field {
		case model.FieldTitle:
			out = append(out, Pair{"Title", orPlaceholder(s.Title, "Untitled")})
		case model.FieldAuthor:
			out = append(out, Pair{"Author", orPlaceholder(s.Author, "Unknown")})
		case model.FieldPublishedAt:
			out = append(out, Pair{"Published", publishedValue(s.PublishedAt)})
		case model.FieldURL:
			out = append(out, Pair{"URL", orPlaceholder(s.URL, "N/A")})
		case model.FieldTags:
			if len(s.Tags) > 0 {
				out = append(out, Pair{"Tags", strings.Join(s.Tags, ", ")})
			} else {
				out = append(out, Pair{"Tags", "N/A"})
			}
		case model.FieldSubtitle:
			out = append(out, Pair{"Subtitle", orPlaceholder(s.Subtitle, "N/A")})
		case model.FieldReadingTime:
			if content.ReadingTimeMinutes > 0 {
				out = append(out, Pair{"Reading time", fmt.Sprintf("%d min", content.ReadingTimeMinutes)})
			} else {
				out = append(out, Pair{"Reading time", "N/A"})
			}
		case model.FieldSummary:
			out = append(out, Pair{"Summary", orPlaceholder(content.SummaryText, "N/A")})
		}
	}
	return out
}

// publishedValue 尽力把发布时间格式化为日期，解析失败原样展示。
func publishedValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "Unknown"
	}
	if t, ok := model.ParseTimeFlexible(trimmed); ok {
		return t.Format("2006-01-02")
	}
	return trimmed
}

// TXTPost 渲染 TXT 导出中的单篇文章：标题、下划线、选定元数据、正文。
func TXTPost(content model.PostContent, fields []model.MetadataField) string {
	var b strings.Builder
	title := strings.TrimSpace(content.Summary.Title)
	if title == "" {
		title = "Untitled"
	}
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")
	for _, pair := range FieldPairs(content, fields) {
		fmt.Fprintf(&b, "%s: %s\n", pair.Label, pair.Value)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(content.PlainText))
	b.WriteString("\n")
	return b.String()
}

func orPlaceholder(value, placeholder string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return placeholder
	}
	return v
}
