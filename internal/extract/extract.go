// 包 extract 将单个文章页面 HTML 提炼为规范的 PostContent：
// - 标题/作者/时间/副标题/封面/标签 各自走有序探针级联，失败回退发现期摘要
// - 正文容器按选择器级联取第一个非空命中，保证不因主题差异而失败
// - 阅读时长按 "N min read" 模式全页匹配
// 本组件从不让任务失败：除网络错误由调用方处理外，一律降级为兜底值。
package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-newsletter-exporter/internal/fetch"
	"go-newsletter-exporter/internal/footnote"
	"go-newsletter-exporter/internal/model"
	"go-newsletter-exporter/internal/render"
)

// 进程级只读模式表：一次构建，全程共享。
var (
	readingTimeRe = regexp.MustCompile(`(?i)(\d+)\s*min\s*read`)
	jsonLDRe      = regexp.MustCompile(`(?is)<script[^>]*type=["']application/ld\+json["'][^>]*>\s*(.*?)\s*</script>`)

	// bodySelectors 为正文容器选择器级联，自上而下取第一个非空命中。
	// 新主题的启发式追加到末尾即可，不动已有项。
	bodySelectors = []string{
		".available-content",
		"article .body",
		"article .markup",
		".body.markup",
		"article",
		"main",
	}
)

// Fetch 抓取文章页面并提取内容。网络错误原样返回（由编排器记为单篇失败）。
func Fetch(ctx context.Context, cl *fetch.Client, summary model.PostSummary, retries int) (model.PostContent, error) {
	html, err := cl.FetchText(ctx, summary.URL, retries)
	if err != nil {
		return model.PostContent{}, err
	}
	return FromHTML(html, summary), nil
}

// FromHTML 从已抓取的页面 HTML 提取内容（纯函数，不触网）。
func FromHTML(html string, summary model.PostSummary) model.PostContent {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// 解析器对字符串输入不会失败；万一失败则整体回退摘要值
		doc = nil
	}

	normalized := summary
	if doc != nil {
		if title := firstNonEmpty(MetaProperty(doc, "og:title"), TextOf(doc, "h1")); title != "" {
			normalized.Title = title
		}
		if author := AuthorFromPage(doc, html); author != "" {
			normalized.Author = author
		}
		if published := MetaProperty(doc, "article:published_time"); published != "" {
			normalized.PublishedAt = published
		}
		if subtitle := MetaProperty(doc, "og:description"); subtitle != "" {
			normalized.Subtitle = subtitle
		}
		if cover := MetaProperty(doc, "og:image"); cover != "" {
			normalized.CoverURL = cover
		}
		if tags := MetaValues(doc, "article:tag"); len(tags) > 0 {
			normalized.Tags = tags
		}
	}

	bodyHTML := ""
	if doc != nil {
		bodyHTML = bodyFromDocument(doc)
	}
	if bodyHTML == "" {
		// 最后兜底：取 main 文本包一层段落，保证后续渲染始终有输入
		text := ""
		if doc != nil {
			text = TextOf(doc, "main")
		}
		if text != "" {
			bodyHTML = "<p>" + text + "</p>"
		} else {
			bodyHTML = "<p>No content extracted.</p>"
		}
	}

	reconciled, notes := footnote.Reconcile(bodyHTML)
	return model.PostContent{
		Summary:            normalized,
		PlainText:          render.PlainText(reconciled, notes),
		EpubBody:           render.EpubBody(reconciled, notes),
		ReadingTimeMinutes: ReadingTime(html),
		SummaryText:        summary.Summary,
	}
}

// bodyFromDocument 按级联取第一个非空正文容器的内部 HTML。
func bodyFromDocument(doc *goquery.Document) string {
	for _, selector := range bodySelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		html, err := sel.Html()
		if err != nil {
			continue
		}
		if strings.TrimSpace(html) != "" {
			return html
		}
	}
	return ""
}

// TextOf 取选择器首个命中的折叠空白文本。
func TextOf(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// MetaName 读取 <meta name=...> 的 content。
func MetaName(doc *goquery.Document, name string) string {
	v, _ := doc.Find(`meta[name='` + name + `']`).First().Attr("content")
	return strings.TrimSpace(v)
}

// MetaProperty 读取 <meta property=...> 的 content。
func MetaProperty(doc *goquery.Document, property string) string {
	v, _ := doc.Find(`meta[property='` + property + `']`).First().Attr("content")
	return strings.TrimSpace(v)
}

// MetaValues 读取同名 property 的全部非空 content。
func MetaValues(doc *goquery.Document, property string) []string {
	var out []string
	doc.Find(`meta[property='` + property + `']`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			v = strings.TrimSpace(v)
			if v != "" {
				out = append(out, v)
			}
		}
	})
	return out
}

// AuthorFromPage 按探针级联解析作者，拒绝平台占位值后取第一个有效候选。
func AuthorFromPage(doc *goquery.Document, pageHTML string) string {
	probes := []func() string{
		func() string { return MetaName(doc, "author") },
		func() string { return MetaName(doc, "parsely-author") },
		func() string { return MetaProperty(doc, "article:author") },
		func() string { return MetaProperty(doc, "og:article:author") },
		func() string { return TextOf(doc, "[itemprop='author']") },
		func() string { return TextOf(doc, "a[rel='author']") },
		func() string { return TextOf(doc, ".pencraft .byline-name") },
		func() string { return TextOf(doc, ".post-meta .author") },
		func() string { return authorFromJSONLD(pageHTML) },
	}
	for _, probe := range probes {
		cleaned := strings.Join(strings.Fields(probe()), " ")
		if cleaned == "" {
			continue
		}
		lower := strings.ToLower(cleaned)
		if lower == "substack" || lower == "unknown" {
			continue
		}
		return cleaned
	}
	return ""
}

// authorFromJSONLD 从结构化数据脚本块递归收集 author 名称。
func authorFromJSONLD(pageHTML string) string {
	for _, m := range jsonLDRe.FindAllStringSubmatch(pageHTML, -1) {
		body := strings.TrimSpace(m[1])
		if body == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			continue
		}
		var found []string
		collectAuthorNames(parsed, &found)
		for _, name := range found {
			cleaned := strings.Join(strings.Fields(name), " ")
			if cleaned != "" {
				return cleaned
			}
		}
	}
	return ""
}

func collectAuthorNames(value any, out *[]string) {
	switch v := value.(type) {
	case map[string]any:
		if author, ok := v["author"]; ok {
			switch a := author.(type) {
			case string:
				*out = append(*out, a)
			case map[string]any:
				if name, ok := a["name"].(string); ok {
					*out = append(*out, name)
				}
			case []any:
				for _, item := range a {
					if m, ok := item.(map[string]any); ok {
						if name, ok := m["name"].(string); ok {
							*out = append(*out, name)
						}
					}
				}
			}
		}
		for _, child := range v {
			collectAuthorNames(child, out)
		}
	case []any:
		for _, item := range v {
			collectAuthorNames(item, out)
		}
	}
}

// ReadingTime 全页匹配 "N min read"，未命中返回 0。
func ReadingTime(pageHTML string) int {
	m := readingTimeRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
