// 包 discover 负责出版物发现：
// - Normalize：把用户输入归一为出版物根 URL
// - Load：优先结构化订阅（/feed /rss），回退归档页抓取（/archive）
// 调用方无需关心最终走了哪条路径。
package discover

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"go-newsletter-exporter/internal/extract"
	"go-newsletter-exporter/internal/fetch"
	"go-newsletter-exporter/internal/logx"
	"go-newsletter-exporter/internal/model"
)

// feedRetries 为发现阶段单个候选的重试次数（轻量探测，少于正文抓取）。
const feedRetries = 2

// Normalize 将用户输入归一为出版物根 URL：
// - 带协议的完整 URL：取 scheme://host[:port]
// - 含点号的裸域名：补 https://
// - 纯名称：视为 substack 子域
func Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", model.NewConfigError("publication URL cannot be empty")
	}
	candidate := trimmed
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		if strings.Contains(trimmed, ".") {
			candidate = "https://" + trimmed
		} else {
			candidate = "https://" + trimmed + ".substack.com"
		}
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return "", model.NewConfigError("invalid publication URL: %s", input)
	}
	base := parsed.Scheme + "://" + parsed.Host
	return base, nil
}

// Load 发现出版物身份与文章列表。
func Load(ctx context.Context, cl *fetch.Client, baseURL string) (model.Publication, []model.PostSummary, error) {
	pub, posts, err := loadFromFeed(ctx, cl, baseURL)
	if err != nil {
		logx.Debugf("订阅发现失败，回退归档页：%v", err)
		pub, posts, err = loadFromArchive(ctx, cl, baseURL)
		if err != nil {
			return model.Publication{}, nil, err
		}
	}
	hydrateIdentity(ctx, cl, &pub)
	return pub, posts, nil
}

// loadFromFeed 依次探测常见订阅端点并用 gofeed 解析。
func loadFromFeed(ctx context.Context, cl *fetch.Client, baseURL string) (model.Publication, []model.PostSummary, error) {
	candidates := []string{baseURL + "/feed", baseURL + "/rss"}
	if strings.Contains(baseURL, "substack.com") {
		candidates = append(candidates, baseURL+"/feed?source=desktop")
	}

	var lastErr error
	parser := gofeed.NewParser()
	for _, feedURL := range candidates {
		raw, err := cl.FetchText(ctx, feedURL, feedRetries)
		if err != nil {
			lastErr = fmt.Errorf("feed candidate %s: %w", feedURL, err)
			continue
		}
		feed, err := parser.ParseString(raw)
		if err != nil {
			lastErr = fmt.Errorf("parse feed %s: %w", feedURL, err)
			continue
		}
		posts := mapPostsFromFeed(feed)
		if len(posts) == 0 {
			lastErr = fmt.Errorf("feed %s loaded but no posts were found", feedURL)
			continue
		}
		return mapPublicationFromFeed(baseURL, feed), posts, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("unable to load publication feed for %s", baseURL)
	}
	return model.Publication{}, nil, lastErr
}

// mapPublicationFromFeed 从频道信息映射出版物身份。
func mapPublicationFromFeed(baseURL string, feed *gofeed.Feed) model.Publication {
	pub := model.Publication{URL: baseURL, Title: strings.TrimSpace(feed.Title)}
	for _, it := range feed.Items {
		if name := itemAuthor(it); name != "" {
			pub.Author = name
			break
		}
	}
	if feed.Image != nil {
		pub.CoverURL = feed.Image.URL
	}
	return pub
}

// mapPostsFromFeed 将订阅条目归一化为文章摘要，按发布时间倒序。
func mapPostsFromFeed(feed *gofeed.Feed) []model.PostSummary {
	posts := make([]model.PostSummary, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			title = "Untitled post"
		}
		published := time.Now().UTC()
		if it.PublishedParsed != nil {
			published = it.PublishedParsed.UTC()
		} else if t, ok := model.ParseTimeFlexible(it.Published); ok {
			published = t
		}
		id := strings.TrimSpace(it.GUID)
		if id == "" {
			id = link
		}
		var cover string
		for _, enc := range it.Enclosures {
			if enc != nil && enc.URL != "" {
				cover = enc.URL
				break
			}
		}
		posts = append(posts, model.PostSummary{
			ID:          id,
			Title:       title,
			PublishedAt: published.Format(time.RFC3339),
			URL:         link,
			Author:      itemAuthor(it),
			CoverURL:    cover,
			Subtitle:    strings.TrimSpace(it.Description),
		})
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt > posts[j].PublishedAt
	})
	return posts
}

func itemAuthor(it *gofeed.Item) string {
	for _, a := range it.Authors {
		if a == nil {
			continue
		}
		if a.Name != "" {
			return a.Name
		}
		if a.Email != "" {
			return a.Email
		}
	}
	return ""
}

// loadFromArchive 抓取 /archive 页面并按 /p/ 链接提取文章。
// 归档页没有真实时间戳，用 now-序号秒 构造递减伪时间，
// 使按日期排序与页面顺序一致。
func loadFromArchive(ctx context.Context, cl *fetch.Client, baseURL string) (model.Publication, []model.PostSummary, error) {
	archiveURL := baseURL + "/archive"
	html, err := cl.FetchText(ctx, archiveURL, feedRetries)
	if err != nil {
		return model.Publication{}, nil, fmt.Errorf("GET archive %s: %w", archiveURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.Publication{}, nil, fmt.Errorf("parse archive html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Newsletter publication"
	}
	author := extract.AuthorFromPage(doc, html)
	cover := extract.MetaProperty(doc, "og:image")

	now := time.Now().UTC()
	seen := map[string]bool{}
	var posts []model.PostSummary
	idx := 0
	doc.Find("a[href*='/p/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		full := absURL(baseURL, href)
		if seen[full] {
			return
		}
		seen[full] = true
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		posts = append(posts, model.PostSummary{
			ID:          full,
			Title:       text,
			PublishedAt: now.Add(-time.Duration(idx) * time.Second).Format(time.RFC3339),
			URL:         full,
			Author:      author,
		})
		idx++
	})
	if len(posts) == 0 {
		return model.Publication{}, nil, fmt.Errorf("could not discover any posts from feed or archive for %s", baseURL)
	}

	return model.Publication{URL: baseURL, Title: title, Author: author, CoverURL: cover}, posts, nil
}

// hydrateIdentity 补全缺失的作者/封面：抓取主页一次，尽力填充。
func hydrateIdentity(ctx context.Context, cl *fetch.Client, pub *model.Publication) {
	if strings.TrimSpace(pub.Author) != "" && strings.TrimSpace(pub.CoverURL) != "" {
		return
	}
	html, err := cl.FetchText(ctx, pub.URL, 1)
	if err != nil {
		logx.Debugf("补全出版物身份失败：%v", err)
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}
	if strings.TrimSpace(pub.Author) == "" {
		pub.Author = extract.AuthorFromPage(doc, html)
	}
	if strings.TrimSpace(pub.CoverURL) == "" {
		pub.CoverURL = extract.MetaProperty(doc, "og:image")
	}
}

// absURL 将相对链接转换为绝对 URL。
func absURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	bu, err := url.Parse(base)
	if err != nil {
		return base + ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return base + ref
	}
	return bu.ResolveReference(ru).String()
}
