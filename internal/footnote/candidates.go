package footnote

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/k3a/html2text"
)

// candidate 为一条待配对的脚注正文候选：
// ids 收集块内全部元素 id，hrefTargets 收集块内锚点的片段目标，
// 两者都参与与引用目标 id 的匹配。
type candidate struct {
	ids         []string
	hrefTargets []string
	text        string
}

// backlinkMarkers 为启发式兜底的回链标记：块内出现任一标记即视为候选。
var backlinkMarkers = []string{
	"footnote-backref",
	"back to content",
	"return to article",
	"return to content",
	"#fnref",
	`href="#fn`,
	`href="#footnote`,
	"footnote-number",
}

// navAnchorRes 为脚注导航锚点清理模式：回链/编号锚点整体移除。
var navAnchorRes = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<a[^>]*class=["'][^"']*footnote-backref[^"']*["'][^>]*>.*?</a>`),
	regexp.MustCompile(`(?is)<a[^>]*class=["'][^"']*footnote-number[^"']*["'][^>]*>.*?</a>`),
	regexp.MustCompile(`(?is)<a[^>]*href=["']#fnref[^"']*["'][^>]*>.*?</a>`),
	regexp.MustCompile(`(?is)<a[^>]*>\s*(?:↩|&#8617;|&#x21a9;)\s*</a>`),
	regexp.MustCompile(`(?is)<a[^>]*>\s*(?:back|return)[^<]*</a>`),
}

func (c candidate) containsTarget(targetID string) bool {
	lower := strings.ToLower(targetID)
	key := normalizeKey(targetID)
	match := func(v string) bool {
		if strings.ToLower(v) == lower {
			return true
		}
		return key != "" && normalizeKey(v) == key
	}
	for _, id := range c.ids {
		if match(id) {
			return true
		}
	}
	for _, t := range c.hrefTargets {
		if match(t) {
			return true
		}
	}
	return false
}

// collectCandidates 按优先级收集脚注正文候选，各档互斥：
// 扁平块形态命中即返回；否则结构化容器；再否则回链启发式。
func collectCandidates(bodyHTML string) []candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return nil
	}
	if flat := collectFlatBlockCandidates(doc); len(flat) > 0 {
		return flat
	}
	if structured := collectContainerCandidates(doc); len(structured) > 0 {
		return structured
	}
	return collectHeuristicCandidates(doc)
}

// collectFlatBlockCandidates 收集扁平块形态：class 恰好含 "footnote"
// 一词的 div（排除 footnote-content / footnote-anchor 等修饰类）。
func collectFlatBlockCandidates(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		classes := strings.Fields(s.AttrOr("class", ""))
		hit := false
		for _, cls := range classes {
			if strings.EqualFold(cls, "footnote") {
				hit = true
			}
			if strings.EqualFold(cls, "footnote-content") || strings.EqualFold(cls, "footnote-anchor") {
				return
			}
		}
		if !hit {
			return
		}
		c := candidate{}
		if id := strings.TrimSpace(s.AttrOr("id", "")); id != "" {
			c.ids = append(c.ids, id)
		}
		s.Find("[id]").Each(func(_ int, d *goquery.Selection) {
			if id := strings.TrimSpace(d.AttrOr("id", "")); id != "" {
				c.ids = append(c.ids, id)
			}
		})
		s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if t, ok := fragmentID(a.AttrOr("href", "")); ok {
				c.hrefTargets = append(c.hrefTargets, t)
			}
		})
		// 正文优先取专用内容节点，缺失时退回整块去导航后的文本
		content := s.Find(".footnote-content").First()
		if content.Length() > 0 {
			if h, err := content.Html(); err == nil {
				c.text = cleanupText(html2text.HTML2Text(h))
			}
		}
		if c.text == "" {
			if h, err := s.Html(); err == nil {
				c.text = cleanupText(html2text.HTML2Text(stripNavigation(h)))
			}
		}
		// 无实质文本的扁平块整个丢弃，不让它占用配对名额
		if meaningfulText(c.text) {
			out = append(out, c)
		}
	})
	return out
}

// collectContainerCandidates 收集结构化容器形态的脚注子项。
func collectContainerCandidates(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("section, div, aside, ol, ul").Each(func(_ int, s *goquery.Selection) {
		if !isFootnoteContainer(s) {
			return
		}
		// 扁平块已由上一档处理，这里跳过
		if goquery.NodeName(s) == "div" && hasExactClass(s, "footnote") {
			return
		}
		items := s.Find("li")
		if items.Length() > 0 {
			items.Each(func(_ int, li *goquery.Selection) {
				if c, ok := buildCandidate(li); ok {
					out = append(out, c)
				}
			})
			return
		}
		s.ChildrenFiltered("p, div").Each(func(_ int, child *goquery.Selection) {
			if c, ok := buildCandidate(child); ok {
				out = append(out, c)
			}
		})
	})
	return out
}

// collectHeuristicCandidates 为最后兜底：任何含回链标记的块都算候选。
func collectHeuristicCandidates(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("li, p, div").Each(func(_ int, s *goquery.Selection) {
		h, err := s.Html()
		if err != nil {
			return
		}
		lower := strings.ToLower(h)
		hit := false
		for _, marker := range backlinkMarkers {
			if strings.Contains(lower, marker) {
				hit = true
				break
			}
		}
		if !hit {
			return
		}
		if c, ok := buildCandidate(s); ok {
			out = append(out, c)
		}
	})
	return out
}

// buildCandidate 从单个块构造候选。含多个 li 的非 li 块是容器而非条目，丢弃。
func buildCandidate(s *goquery.Selection) (candidate, bool) {
	if goquery.NodeName(s) != "li" && s.Find("li").Length() > 1 {
		return candidate{}, false
	}
	c := candidate{}
	if id := strings.TrimSpace(s.AttrOr("id", "")); id != "" {
		c.ids = append(c.ids, id)
	}
	s.Find("[id]").Each(func(_ int, d *goquery.Selection) {
		if id := strings.TrimSpace(d.AttrOr("id", "")); id != "" {
			c.ids = append(c.ids, id)
		}
	})
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if t, ok := fragmentID(a.AttrOr("href", "")); ok {
			c.hrefTargets = append(c.hrefTargets, t)
		}
	})
	h, err := s.Html()
	if err != nil {
		return candidate{}, false
	}
	c.text = cleanupText(html2text.HTML2Text(stripNavigation(h)))
	if !meaningfulText(c.text) && len(c.ids) == 0 && len(c.hrefTargets) == 0 {
		return candidate{}, false
	}
	return c, true
}

// isFootnoteContainer 判断元素是否是专门的脚注/尾注容器。
func isFootnoteContainer(s *goquery.Selection) bool {
	marker := strings.ToLower(s.AttrOr("id", "") + " " + s.AttrOr("class", "") + " " + s.AttrOr("epub:type", ""))
	if strings.Contains(marker, "footnote") || strings.Contains(marker, "endnote") {
		return true
	}
	return strings.EqualFold(s.AttrOr("role", ""), "doc-endnotes")
}

func hasExactClass(s *goquery.Selection, name string) bool {
	for _, cls := range strings.Fields(s.AttrOr("class", "")) {
		if strings.EqualFold(cls, name) {
			return true
		}
	}
	return false
}

// stripNavigation 移除脚注导航锚点（回链、编号、返回符号），只留正文。
func stripNavigation(inputHTML string) string {
	out := inputHTML
	for _, re := range navAnchorRes {
		out = re.ReplaceAllString(out, "")
	}
	return out
}
