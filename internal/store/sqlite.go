// 包 store 提供存储实现（SQLite），记录文章缓存与导出历史。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go-newsletter-exporter/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// ExportRun 为一次导出任务的历史记录。
type ExportRun struct {
	Publication string
	Formats     string
	Succeeded   int
	FailedCount int
	OutputFiles string
	FinishedAt  time.Time
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空业务数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, table := range []string{"export_runs", "posts", "publications"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS publications (
            url TEXT UNIQUE,
            title TEXT,
            author TEXT,
            cover_url TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS posts (
            id TEXT UNIQUE,
            publication_url TEXT,
            title TEXT,
            published_at TEXT,
            url TEXT,
            author TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS export_runs (
            publication TEXT,
            formats TEXT,
            succeeded INTEGER,
            failed INTEGER,
            output_files TEXT,
            finished_at TIMESTAMP
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// UpsertPublication 插入或更新出版物（url 唯一约束）。
func (s *SQLite) UpsertPublication(ctx context.Context, p model.Publication) error {
	if p.URL == "" {
		return errors.New("publication.url required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO publications(url, title, author, cover_url, created_at)
        VALUES(?,?,?,?,?)
        ON CONFLICT(url) DO UPDATE SET title=excluded.title, author=excluded.author, cover_url=excluded.cover_url`,
		p.URL, p.Title, p.Author, p.CoverURL, time.Now())
	if err != nil {
		return fmt.Errorf("upsert publication %s: %w", p.URL, err)
	}
	return nil
}

// UpsertPost 插入或更新文章摘要（id 唯一约束）。
func (s *SQLite) UpsertPost(ctx context.Context, pubURL string, p model.PostSummary) error {
	if p.ID == "" {
		return errors.New("post.id required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO posts(id, publication_url, title, published_at, url, author, created_at)
        VALUES(?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET title=excluded.title, published_at=excluded.published_at, url=excluded.url, author=excluded.author`,
		p.ID, pubURL, p.Title, p.PublishedAt, p.URL, p.Author, time.Now())
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.ID, err)
	}
	return nil
}

// ListPosts 返回某出版物缓存的文章摘要，按发布时间倒序。
func (s *SQLite) ListPosts(ctx context.Context, pubURL string) ([]model.PostSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, published_at, url, author FROM posts
        WHERE publication_url = ? ORDER BY published_at DESC`, pubURL)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()
	var out []model.PostSummary
	for rows.Next() {
		var p model.PostSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.PublishedAt, &p.URL, &p.Author); err != nil {
			return nil, fmt.Errorf("scan posts: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

// RecordRun 写入一条导出历史。
func (s *SQLite) RecordRun(ctx context.Context, pubTitle string, formats []model.Format, result model.ExportResult) error {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO export_runs(publication, formats, succeeded, failed, output_files, finished_at)
        VALUES(?,?,?,?,?,?)`,
		pubTitle, strings.Join(names, ","), len(result.Succeeded), len(result.Failed),
		strings.Join(result.OutputFiles, "\n"), result.FinishedAt)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns 返回最近的导出历史，按完成时间倒序。
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]ExportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT publication, formats, succeeded, failed, output_files, finished_at
        FROM export_runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []ExportRun
	for rows.Next() {
		var r ExportRun
		var finished sql.NullTime
		if err := rows.Scan(&r.Publication, &r.Formats, &r.Succeeded, &r.FailedCount, &r.OutputFiles, &finished); err != nil {
			return nil, fmt.Errorf("scan runs: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
