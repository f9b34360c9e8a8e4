package job

import (
	"sort"
	"strings"

	"go-newsletter-exporter/internal/config"
	"go-newsletter-exporter/internal/model"
)

// selectPosts 按配置挑选参与导出的文章。
// 指定模式下：空选择集与一个都未匹配都视为配置错误。
func selectPosts(posts []model.PostSummary, cfg *config.Config) ([]model.PostSummary, error) {
	if cfg.Mode == model.SelectEntireProfile {
		return posts, nil
	}
	if len(cfg.SelectedPostIDs) == 0 {
		return nil, model.NewConfigError("specific_posts mode requires a non-empty SELECTED_POST_IDS")
	}
	wanted := make(map[string]bool, len(cfg.SelectedPostIDs))
	for _, id := range cfg.SelectedPostIDs {
		wanted[strings.TrimSpace(id)] = true
	}
	var out []model.PostSummary
	for _, p := range posts {
		if wanted[p.ID] || wanted[p.URL] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, model.NewConfigError("none of the selected post ids matched the publication")
	}
	return out, nil
}

// orderPosts 决定导出顺序。
// 日期模式：按发布时间排主序，方向可配；同刻永远按标题（忽略大小写）升序。
// 手动模式：点名的在前、按点名顺序，缺席的点名跳过；未点名的按日期规则附在后面。
func orderPosts(posts []model.PostSummary, cfg *config.Config) []model.PostSummary {
	byDate := make([]model.PostSummary, len(posts))
	copy(byDate, posts)
	sort.SliceStable(byDate, func(i, j int) bool {
		ti, tj := sortEpoch(byDate[i]), sortEpoch(byDate[j])
		if ti != tj {
			if cfg.SortDirection == model.SortAsc {
				return ti < tj
			}
			return ti > tj
		}
		return strings.ToLower(byDate[i].Title) < strings.ToLower(byDate[j].Title)
	})
	if cfg.OrderMode != model.OrderManual {
		return byDate
	}

	index := make(map[string]int, len(posts))
	for i, p := range posts {
		index[p.ID] = i
	}
	named := make(map[string]bool, len(cfg.ManualOrder))
	var out []model.PostSummary
	for _, id := range cfg.ManualOrder {
		id = strings.TrimSpace(id)
		if i, ok := index[id]; ok && !named[id] {
			named[id] = true
			out = append(out, posts[i])
		}
	}
	for _, p := range byDate {
		if !named[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// sortEpoch 取排序用的毫秒时间戳，解析失败当作纪元零点。
func sortEpoch(p model.PostSummary) int64 {
	if t, ok := model.ParseTimeFlexible(p.PublishedAt); ok {
		return t.UnixMilli()
	}
	return 0
}
