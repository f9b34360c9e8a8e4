package footnote

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// containerTags 为可能承载脚注区块的元素，按此顺序逐类清除。
var containerTags = []string{"section", "div", "aside", "ol", "ul"}

// containerOpenRes 匹配 class/id/data-component-name 带脚注标记的开标签。
// 属性名前置空白锚定，避免 data-postid 之类以 id 结尾的属性误命中。
// DOM 往返会重排原文，所以容器删除直接在源串上按标签深度裁剪。
var containerOpenRes = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(containerTags))
	for _, tag := range containerTags {
		out[tag] = regexp.MustCompile(
			`(?is)<` + tag + `\b[^>]*\s(?:class|id|data-component-name)=["'][^"']*(?:footnote|endnote|FootnoteToDOM)[^"']*["'][^>]*>`)
	}
	return out
}()

// RemoveContainers 从正文中裁掉整块脚注/尾注容器，返回剩余正文。
// 引用锚点不在容器内，因而不受影响。
func RemoveContainers(bodyHTML string) string {
	out := bodyHTML
	for _, tag := range containerTags {
		re := containerOpenRes[tag]
		from := 0
		for from < len(out) {
			loc := re.FindStringIndex(out[from:])
			if loc == nil {
				break
			}
			start := from + loc[0]
			afterOpen := from + loc[1]
			openTag := out[start:afterOpen]
			// 普通 div 不能误删：只有 class 精确含 footnote/footnotes
			// 或组件名标记的 div 才算容器
			if tag == "div" && !divIsContainer(openTag) {
				from = start + 1
				continue
			}
			end, ok := matchingClose(out, afterOpen, tag)
			if !ok {
				from = start + 1
				continue
			}
			out = out[:start] + out[end:]
			from = start
		}
	}
	return out
}

// divIsContainer 判断一个 div 开标签是否是脚注容器本体。
// 用标准分词器读属性，避免属性值里出现引号/等号时误判。
func divIsContainer(openTag string) bool {
	z := html.NewTokenizer(strings.NewReader(openTag))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return false
	}
	var class, id, component string
	for _, attr := range z.Token().Attr {
		switch attr.Key {
		case "class":
			class = attr.Val
		case "id":
			id = attr.Val
		case "data-component-name":
			component = attr.Val
		}
	}
	if strings.Contains(strings.ToLower(component), "footnote") {
		return true
	}
	for _, cls := range strings.Fields(class) {
		switch strings.ToLower(cls) {
		case "footnote", "footnotes", "endnotes":
			return true
		}
	}
	lid := strings.ToLower(id)
	return strings.HasPrefix(lid, "footnote") || strings.HasPrefix(lid, "endnote")
}

// matchingClose 从 from 起按深度寻找与已消费开标签配对的闭标签，
// 返回闭标签之后的下标。嵌套同名标签正确计数。
func matchingClose(s string, from int, tag string) (int, bool) {
	lower := asciiLower(s)
	open := "<" + tag
	close := "</" + tag
	depth := 1
	pos := from
	for pos < len(lower) {
		nextOpen := indexTagFrom(lower, open, pos)
		nextClose := strings.Index(lower[pos:], close)
		if nextClose < 0 {
			return 0, false
		}
		nextClose += pos
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			pos = nextOpen + len(open)
			continue
		}
		depth--
		closeEnd := strings.IndexByte(lower[nextClose:], '>')
		if closeEnd < 0 {
			return 0, false
		}
		end := nextClose + closeEnd + 1
		if depth == 0 {
			return end, true
		}
		pos = end
	}
	return 0, false
}

// indexTagFrom 查找开标签，要求标签名后是边界字符（避免 ul 命中 ulterior 之类前缀）。
func indexTagFrom(lower, open string, from int) int {
	pos := from
	for {
		idx := strings.Index(lower[pos:], open)
		if idx < 0 {
			return -1
		}
		idx += pos
		after := idx + len(open)
		if after >= len(lower) {
			return -1
		}
		ch := lower[after]
		if ch == ' ' || ch == '>' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '/' {
			return idx
		}
		pos = idx + 1
	}
}

// asciiLower 只小写 ASCII 字母，保证与原串逐字节对齐（多字节字符不动）。
func asciiLower(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'A' && ch <= 'Z' {
			b[i] = ch + ('a' - 'A')
		}
	}
	return string(b)
}
