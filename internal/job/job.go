// 包 job 为导出任务编排器：发现 → 选择 → 排序 → 逐篇抓取 →
// 按格式/粒度落盘，单篇失败只记失败项，全部失败才让任务失败。
package job

import (
	"context"
	"fmt"
	"os"
	"time"

	"go-newsletter-exporter/internal/config"
	"go-newsletter-exporter/internal/discover"
	"go-newsletter-exporter/internal/epub"
	"go-newsletter-exporter/internal/extract"
	"go-newsletter-exporter/internal/fetch"
	"go-newsletter-exporter/internal/logx"
	"go-newsletter-exporter/internal/model"
	"go-newsletter-exporter/internal/store"
)

// Runner 持有一次导出任务的全部依赖。st 可为 nil（不记历史）。
type Runner struct {
	cfg    *config.Config
	client *fetch.Client
	st     *store.SQLite
}

// New 创建任务编排器。
func New(cfg *config.Config, client *fetch.Client, st *store.SQLite) *Runner {
	return &Runner{cfg: cfg, client: client, st: st}
}

// Run 执行完整导出。返回的 ExportResult 即使出错也尽量填充已知信息。
func (r *Runner) Run(ctx context.Context) (model.ExportResult, error) {
	result := model.ExportResult{}
	if len(r.cfg.Formats) == 0 {
		return result, model.NewConfigError("at least one output format is required")
	}
	if r.cfg.OutputDir == "" {
		return result, model.NewConfigError("OUTPUT_DIR is required")
	}
	if r.cfg.Mode == model.SelectSpecificPosts && len(r.cfg.SelectedPostIDs) == 0 {
		return result, model.NewConfigError("specific_posts mode requires a non-empty SELECTED_POST_IDS")
	}
	// 输出目录不可写也要在触网前暴露
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return result, model.NewConfigError("create output dir %s: %v", r.cfg.OutputDir, err)
	}

	base, err := discover.Normalize(r.cfg.URL)
	if err != nil {
		return result, err
	}
	pub, posts, err := discover.Load(ctx, r.client, base)
	if err != nil {
		return result, fmt.Errorf("discover publication %s: %w", base, err)
	}
	logx.Infof("发现出版物 %q，共 %d 篇文章", pub.Title, len(posts))
	r.remember(ctx, pub, posts)

	selected, err := selectPosts(posts, r.cfg)
	if err != nil {
		return result, err
	}
	ordered := orderPosts(selected, r.cfg)
	logx.Infof("本次导出 %d 篇（模式 %s，排序 %s/%s）",
		len(ordered), r.cfg.Mode, r.cfg.OrderMode, r.cfg.SortDirection)

	// 逐篇抓取：单篇失败记入失败清单，不中断整体
	var contents []model.PostContent
	for _, summary := range ordered {
		content, err := extract.Fetch(ctx, r.client, summary, r.cfg.Retry)
		if err != nil {
			logx.Warnf("文章下载失败 %s：%v", summary.URL, err)
			result.Failed = append(result.Failed, model.ExportFailure{
				PostID: summary.ID, Reason: err.Error(),
			})
			continue
		}
		contents = append(contents, content)
		result.Succeeded = append(result.Succeeded, summary.ID)
	}
	if len(contents) == 0 {
		return result, model.ErrAllPostsFailed
	}

	// 封面只在需要装配 EPUB 时解析；任何封面失败都降级为告警
	var cover *epub.Cover
	if hasFormat(r.cfg.Formats, model.FormatEPUB) {
		resolved, warning := r.resolveCover(ctx, pub)
		if warning != "" {
			logx.Warnf("%s", warning)
			result.Warnings = append(result.Warnings, warning)
		}
		cover = resolved
	}

	for _, format := range r.cfg.Formats {
		var files []string
		var err error
		switch format {
		case model.FormatTXT:
			files, err = r.writeTXT(pub, contents)
		case model.FormatEPUB:
			files, err = r.writeEPUB(pub, contents, cover)
		}
		if err != nil {
			return result, err
		}
		result.OutputFiles = append(result.OutputFiles, files...)
	}

	result.FinishedAt = time.Now().UTC()
	if r.st != nil {
		if err := r.st.RecordRun(ctx, pub.Title, r.cfg.Formats, result); err != nil {
			logx.Warnf("写入导出历史失败：%v", err)
		}
	}
	return result, nil
}

// remember 把发现结果写入缓存库（未启用历史时为空操作）。
func (r *Runner) remember(ctx context.Context, pub model.Publication, posts []model.PostSummary) {
	if r.st == nil {
		return
	}
	if err := r.st.UpsertPublication(ctx, pub); err != nil {
		logx.Warnf("缓存出版物失败：%v", err)
		return
	}
	for _, p := range posts {
		if err := r.st.UpsertPost(ctx, pub.URL, p); err != nil {
			logx.Warnf("缓存文章失败 %s：%v", p.ID, err)
		}
	}
}

func hasFormat(formats []model.Format, want model.Format) bool {
	for _, f := range formats {
		if f == want {
			return true
		}
	}
	return false
}
