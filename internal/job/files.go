package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-newsletter-exporter/internal/epub"
	"go-newsletter-exporter/internal/model"
	"go-newsletter-exporter/internal/render"
)

// maxFilenameLen 为净化后文件名主干的长度上限。
const maxFilenameLen = 120

// sanitizeFilename 把任意标题净化为安全文件名：
// 只保留字母数字、连字符、下划线、点号与空格，其余替换为下划线，
// 折叠重复空格、去掉首尾点号，超长截断，空结果回退 untitled。
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '-' || ch == '_' || ch == ' ' || ch == '.':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	out = strings.Trim(out, ". ")
	if len(out) > maxFilenameLen {
		out = strings.Trim(out[:maxFilenameLen], ". ")
	}
	if out == "" {
		return "untitled"
	}
	return out
}

// txtHeader 为每个 TXT 文件的头部：出版物名与生成时间。
func txtHeader(pubTitle string) string {
	return fmt.Sprintf("Publication: %s\nGenerated: %s\n\n", pubTitle, time.Now().UTC().Format(time.RFC3339))
}

// writeTXT 按粒度写出 TXT 文件，返回写出的文件路径。
func (r *Runner) writeTXT(pub model.Publication, contents []model.PostContent) ([]string, error) {
	sep := strings.Repeat("=", 60)
	var files []string
	if r.cfg.Granularity == model.GranularityCombined {
		var b strings.Builder
		b.WriteString(txtHeader(pub.Title))
		for i, content := range contents {
			if i > 0 {
				b.WriteString("\n" + sep + "\n\n")
			}
			b.WriteString(render.TXTPost(content, r.cfg.MetadataFields))
		}
		path := filepath.Join(r.cfg.OutputDir, sanitizeFilename(pub.Title+" - combined")+".txt")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		return []string{path}, nil
	}
	for _, content := range contents {
		body := txtHeader(pub.Title) + render.TXTPost(content, r.cfg.MetadataFields)
		path := filepath.Join(r.cfg.OutputDir,
			sanitizeFilename(pub.Title+" - "+content.Summary.Title)+".txt")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// writeEPUB 按粒度装配并写出 EPUB 文件。
func (r *Runner) writeEPUB(pub model.Publication, contents []model.PostContent, cover *epub.Cover) ([]string, error) {
	if r.cfg.Granularity == model.GranularityCombined {
		book := &epub.Book{Title: pub.Title, Author: pub.Author, Cover: cover}
		for _, content := range contents {
			book.Chapters = append(book.Chapters, r.chapterOf(content))
		}
		path := filepath.Join(r.cfg.OutputDir, sanitizeFilename(pub.Title+" - combined")+".epub")
		if err := epub.WriteFile(path, book); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	var files []string
	for _, content := range contents {
		author := content.Summary.Author
		if strings.TrimSpace(author) == "" {
			author = pub.Author
		}
		book := &epub.Book{
			Title:    content.Summary.Title,
			Author:   author,
			Cover:    cover,
			Chapters: []epub.Chapter{r.chapterOf(content)},
		}
		path := filepath.Join(r.cfg.OutputDir,
			sanitizeFilename(pub.Title+" - "+content.Summary.Title)+".epub")
		if err := epub.WriteFile(path, book); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (r *Runner) chapterOf(content model.PostContent) epub.Chapter {
	return epub.Chapter{
		Title:     content.Summary.Title,
		BodyXHTML: content.EpubBody,
		Meta:      render.FieldPairs(content, r.cfg.MetadataFields),
	}
}

// resolveCover 解析封面资源。封面属于锦上添花：
// 无论来源（出版物 URL、自定义文件、data URL），失败一律降级为告警，
// 导出继续、无封面。缺失 CUSTOM_COVER 这类纯配置问题由 config 校验兜住。
func (r *Runner) resolveCover(ctx context.Context, pub model.Publication) (*epub.Cover, string) {
	if r.cfg.CoverMode == model.CoverCustom {
		raw := strings.TrimSpace(r.cfg.CustomCover)
		var data []byte
		var declared string
		if strings.HasPrefix(raw, "data:") {
			var err error
			data, declared, err = epub.DecodeDataURL(raw)
			if err != nil {
				return nil, fmt.Sprintf("custom cover unusable (%v); exporting without one", err)
			}
		} else {
			var err error
			data, err = os.ReadFile(raw)
			if err != nil {
				return nil, fmt.Sprintf("custom cover unreadable (%v); exporting without one", err)
			}
		}
		cover, err := epub.NewCover(data, declared)
		if err != nil {
			return nil, fmt.Sprintf("custom cover unusable (%v); exporting without one", err)
		}
		return cover, ""
	}

	if strings.TrimSpace(pub.CoverURL) == "" {
		return nil, "publication has no cover image; exporting without one"
	}
	data, err := r.client.FetchBytes(ctx, pub.CoverURL, -1)
	if err != nil {
		return nil, fmt.Sprintf("cover download failed (%v); exporting without one", err)
	}
	cover, err := epub.NewCover(data, "")
	if err != nil {
		return nil, fmt.Sprintf("cover unusable (%v); exporting without one", err)
	}
	return cover, ""
}
