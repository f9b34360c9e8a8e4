// 包 render 把对账后的正文（含脚注占位符）落成两种最终形态：
// - PlainText：TXT 导出用的纯文本，脚注以 [n] 内联并在文末列出
// - EpubBody：章节 XHTML 正文，脚注以 noteref 上标呈现并带回链区块
// 两种形态共享同一份脚注编号，保证编号一致。
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	"github.com/microcosm-cc/bluemonday"

	"go-newsletter-exporter/internal/footnote"
	"go-newsletter-exporter/internal/model"
)

var (
	blockCloseRe = regexp.MustCompile(`(?i)</(?:p|div|li|blockquote|h[1-6]|section|article)>`)
	brTagRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTagRe      = regexp.MustCompile(`(?i)<hr([^>/]*)>`)
	imgTagRe     = regexp.MustCompile(`(?i)<img([^>]*[^>/])>`)
	anchorWrapRe = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a>`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// epubPolicy 为章节正文的清洗策略：保留常见排版元素，
// 剔除脚本/样式/嵌入媒体连同其内容。
var epubPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "div", "span", "br", "hr", "img",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "pre", "code",
		"em", "strong", "b", "i", "u", "s", "sub", "sup", "small", "mark",
		"table", "thead", "tbody", "tr", "td", "th",
		"figure", "figcaption", "section", "aside",
	)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("id", "class").Globally()
	p.AllowStandardURLs()
	p.SkipElementsContent("script", "style", "iframe", "video", "audio", "svg", "form")
	return p
}()

// PlainText 将正文渲染为纯文本。
// 块级闭标签后补空行、<br> 换行、锚点解包只留文字，
// 再经 HTML 转文本并折叠多余空行；脚注占位符回填为 [n]。
func PlainText(bodyHTML string, notes []model.FootnoteEntry) string {
	prepared := blockCloseRe.ReplaceAllString(bodyHTML, "$0\n\n")
	prepared = brTagRe.ReplaceAllString(prepared, "<br/>\n")
	prepared = anchorWrapRe.ReplaceAllString(prepared, "$1")

	text := html2text.HTML2Text(prepared)
	text = normalizePlainText(text)

	for _, note := range notes {
		text = strings.ReplaceAll(text, footnote.Token(note.Number), fmt.Sprintf("[%d]", note.Number))
	}
	if len(notes) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n\nFootnotes\n")
		for _, note := range notes {
			fmt.Fprintf(&b, "[%d] %s\n", note.Number, note.Text)
		}
		text = strings.TrimRight(b.String(), "\n")
	}
	return text
}

// normalizePlainText 逐行去尾部空白并把连续空行折叠为一个。
func normalizePlainText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	out := strings.Join(lines, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// EpubBody 将正文渲染为章节 XHTML：清洗、自闭合空元素、
// 占位符回填为 noteref 上标，文末追加脚注区块。
// 正文不含任何块级标记时按纯文本分段兜底。
func EpubBody(bodyHTML string, notes []model.FootnoteEntry) string {
	sanitized := epubPolicy.Sanitize(bodyHTML)
	sanitized = brTagRe.ReplaceAllString(sanitized, "<br/>")
	sanitized = hrTagRe.ReplaceAllString(sanitized, "<hr$1/>")
	sanitized = imgTagRe.ReplaceAllString(sanitized, "<img$1/>")

	if !hasBlockMarkup(sanitized) {
		sanitized = paragraphFallback(sanitized)
	}

	for _, note := range notes {
		marker := fmt.Sprintf(
			`<a class="footnote-ref" href="#footnote-%d" id="footnote-ref-%d" epub:type="noteref"><sup class="footnote-ref-num">%d</sup></a>`,
			note.Number, note.Number, note.Number)
		sanitized = strings.ReplaceAll(sanitized, footnote.Token(note.Number), marker)
	}

	if len(notes) > 0 {
		var b strings.Builder
		b.WriteString(sanitized)
		b.WriteString("\n<section class=\"footnotes\">\n<h2>Footnotes</h2>\n<ol>\n")
		for _, note := range notes {
			fmt.Fprintf(&b,
				"<li id=\"footnote-%d\">%s <a class=\"footnote-backref\" href=\"#footnote-ref-%d\" epub:type=\"backlink\">[back]</a></li>\n",
				note.Number, Escape(note.Text), note.Number)
		}
		b.WriteString("</ol>\n</section>")
		sanitized = b.String()
	}
	return sanitized
}

func hasBlockMarkup(html string) bool {
	lower := strings.ToLower(html)
	for _, tag := range []string{"<p", "<div", "<section", "<blockquote"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// paragraphFallback 把无标记文本按空行分段，段内换行转 <br/>。
// 输入已被清洗过（实体已转义），先还原再统一转义，保证只转义一次。
func paragraphFallback(raw string) string {
	text := strings.TrimSpace(html.UnescapeString(raw))
	if text == "" {
		return "<p>No content available.</p>"
	}
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := Escape(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br/>")
		b.WriteString("<p>")
		b.WriteString(escaped)
		b.WriteString("</p>\n")
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return "<p>No content available.</p>"
	}
	return out
}

// Escape 对 XML/XHTML 的五个保留字符做一次性转义。
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
