// 包 footnote 负责脚注对账：在没有统一 HTML 约定的前提下，
// 识别正文中的脚注引用与脚注正文，把两者配对后
// 产出带占位符的正文与按首次引用顺序编号的脚注列表。
//
// 策略分两档且不在同一文档内混用：
//   - 扁平块形态（每条脚注自成一个 div.footnote）优先
//   - 结构化容器形态（专门的 footnotes/endnotes 区块）其次
//   - 两者都未命中时退化为带回链标记的块启发式
//
// 配对先按 id 精确/归一匹配，全部落空时按文档顺序严格逐位配对。
// 本包从不报错：无法对账时退化为"无脚注"，绝不破坏正文。
package footnote

import (
	"fmt"
	"regexp"
	"strings"

	"go-newsletter-exporter/internal/model"
)

// 进程级只读模式表：一次编译，全程共享。
var (
	anchorRe          = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*>`)
	anchorPairRe      = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*>.*?</a>`)
	refAnchorClassRe  = regexp.MustCompile(`(?is)<a[^>]*class=["'][^"']*footnote-anchor[^"']*["'][^>]*href=["']([^"']+)["'][^>]*>`)
	refAnchorClassRe2 = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*class=["'][^"']*footnote-anchor[^"']*["'][^>]*>`)
	leadingMarkRe     = regexp.MustCompile(`^\s*(?:\[\d+\]|\d+\s*[.)])\s*`)
	trailingBackRe    = regexp.MustCompile(`(?i)(↩|&#8617;|&#x21a9;|&larr;|back(?: to (?:content|article|text))?|\[back\]|return to (?:article|content))\s*$`)
)

// Token 返回第 n 号脚注的内部占位符。两种渲染器据此回填各自的标记。
func Token(n int) string { return fmt.Sprintf("[[FN:%d]]", n) }

// Reconcile 对一段正文片段执行完整对账：
// 返回去除脚注容器、引用替换为占位符的正文，以及编号后的脚注列表。
func Reconcile(bodyHTML string) (string, []model.FootnoteEntry) {
	notes := Extract(bodyHTML)
	main := RemoveContainers(bodyHTML)
	return replaceRefsWithTokens(main, notes), notes
}

// Extract 识别并编号脚注。编号依据正文首次引用顺序，而非候选块顺序。
func Extract(bodyHTML string) []model.FootnoteEntry {
	targetIDs := collectTargetIDs(bodyHTML)
	candidates := collectCandidates(bodyHTML)

	var notes []model.FootnoteEntry
	used := map[int]bool{}
	seen := map[string]bool{}
	var orderedTargets []string

	for _, targetID := range targetIDs {
		lower := strings.ToLower(targetID)
		// 含 "ref" 的 id 是引用侧锚点，不是脚注目标
		if strings.Contains(lower, "ref") || seen[lower] {
			continue
		}
		seen[lower] = true
		orderedTargets = append(orderedTargets, targetID)

		matched := -1
		for idx := range candidates {
			if used[idx] {
				continue
			}
			if candidates[idx].containsTarget(targetID) {
				matched = idx
				break
			}
		}
		if matched < 0 {
			continue
		}
		used[matched] = true
		text := candidates[matched].text
		if !meaningfulText(text) {
			continue
		}
		notes = append(notes, model.FootnoteEntry{
			ID:     targetID,
			Number: len(notes) + 1,
			Text:   text,
		})
	}

	// id 匹配全部落空时，按文档顺序严格逐位配对兜底。
	if len(notes) == 0 {
		for position, targetID := range orderedTargets {
			if position >= len(candidates) {
				break
			}
			if !meaningfulText(candidates[position].text) {
				continue
			}
			notes = append(notes, model.FootnoteEntry{
				ID:     targetID,
				Number: len(notes) + 1,
				Text:   candidates[position].text,
			})
		}
	}
	return notes
}

// collectTargetIDs 按正文出现顺序收集疑似脚注目标的片段标识。
func collectTargetIDs(bodyHTML string) []string {
	var result []string
	seen := map[string]bool{}

	// 引用侧锚点 class 明示指向脚注，最可信，先收
	for _, re := range []*regexp.Regexp{refAnchorClassRe, refAnchorClassRe2} {
		for _, m := range re.FindAllStringSubmatch(bodyHTML, -1) {
			id, ok := fragmentID(m[1])
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			result = append(result, id)
		}
	}

	// 通用路径：按命名启发式过滤全部片段链接
	for _, m := range anchorRe.FindAllStringSubmatch(bodyHTML, -1) {
		id, ok := fragmentID(m[1])
		if !ok {
			continue
		}
		lower := strings.ToLower(id)
		if !(strings.Contains(lower, "footnote") || strings.Contains(lower, "endnote") || strings.HasPrefix(lower, "fn")) {
			continue
		}
		// "footnote-anchor" 是引用侧 id，不是目标
		if strings.Contains(lower, "footnote-anchor") {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// looksLikeFootnoteID 判断片段 id 是否像脚注目标。
func looksLikeFootnoteID(id string) bool {
	lower := strings.ToLower(id)
	if strings.Contains(lower, "footnote-anchor") {
		return false
	}
	return strings.Contains(lower, "footnote") || strings.Contains(lower, "endnote") ||
		strings.HasPrefix(lower, "fn") || strings.Contains(lower, "fn-")
}

// fragmentID 从 href 中取出片段标识，同时支持 #foo 与完整 URL#foo 两种写法。
func fragmentID(href string) (string, bool) {
	pos := strings.LastIndex(href, "#")
	if pos < 0 {
		return "", false
	}
	raw := strings.TrimSpace(href[pos+1:])
	if raw == "" {
		return "", false
	}
	return raw, true
}

// normalizeKey 去掉全部非字母数字字符并小写，容忍主题间的标点/前缀漂移。
func normalizeKey(value string) string {
	var b strings.Builder
	for _, ch := range value {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
	}
	return strings.ToLower(b.String())
}

// meaningfulText 过滤无意义候选：空、纯数字、退格短语。
func meaningfulText(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	normalized := strings.TrimFunc(strings.ToLower(trimmed), func(ch rune) bool {
		return !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9'))
	})
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return false
	}
	switch normalized {
	case "back", "return", "back to content", "return to article", "return to content", "see above":
		return false
	}
	for _, ch := range normalized {
		if ch < '0' || ch > '9' {
			return true
		}
	}
	return false
}

// replaceRefsWithTokens 将已解析的引用锚点替换为占位符；
// 未解析到脚注的引用保持原样，不做静默丢弃。
func replaceRefsWithTokens(inputHTML string, notes []model.FootnoteEntry) string {
	byID := map[string]int{}
	for _, note := range notes {
		byID[strings.ToLower(note.ID)] = note.Number
		if key := normalizeKey(note.ID); key != "" {
			if _, ok := byID[key]; !ok {
				byID[key] = note.Number
			}
		}
	}
	return anchorPairRe.ReplaceAllStringFunc(inputHTML, func(match string) string {
		sub := anchorPairRe.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		targetID, ok := fragmentID(sub[1])
		if !ok || !looksLikeFootnoteID(targetID) {
			return match
		}
		if number, ok := byID[strings.ToLower(targetID)]; ok {
			return Token(number)
		}
		if key := normalizeKey(targetID); key != "" {
			if number, ok := byID[key]; ok {
				return Token(number)
			}
		}
		return match
	})
}

// cleanupText 归一脚注文本：折叠空白，去掉行首编号与行尾回链短语。
func cleanupText(value string) string {
	text := strings.Join(strings.Fields(value), " ")
	text = leadingMarkRe.ReplaceAllString(text, "")
	for trailingBackRe.MatchString(text) {
		text = strings.TrimSpace(trailingBackRe.ReplaceAllString(text, ""))
	}
	return strings.TrimSpace(text)
}
