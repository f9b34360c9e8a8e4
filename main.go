// 命令行入口：
// - 解析 flags 与 settings.yaml（支持 .env 覆盖前置加载）
// - 初始化日志、HTTP 客户端、历史数据库
// - 支持只列出发现的文章（-list）与正式导出两种模式
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"go-newsletter-exporter/internal/config"
	"go-newsletter-exporter/internal/discover"
	"go-newsletter-exporter/internal/fetch"
	"go-newsletter-exporter/internal/job"
	"go-newsletter-exporter/internal/logx"
	"go-newsletter-exporter/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		outputDir  = flag.String("out", "", "override OUTPUT_DIR from config")
		listOnly   = flag.Bool("list", false, "print discovered posts and exit")
	)
	flag.Parse()

	// 1) .env 先行（代理、UA 等环境覆盖），缺失不报错
	_ = godotenv.Load()

	// 2) 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	// 3) 初始化日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	// 4) 初始化 HTTP 客户端（含代理、限速与重试）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Retry:      cfg.Retry,
		RPS:        cfg.RateLimitRPS,
	})
	if err != nil {
		log.Fatalf("http client: %v", err)
	}

	ctx := context.Background()

	// 5) 历史数据库：未启用历史则不打开；导出模式下按需重置
	var st *store.SQLite
	if cfg.History {
		st, err = store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer st.Close()
		if cfg.ResetOnStart && !*listOnly {
			if err := st.Reset(ctx); err != nil {
				logx.Warnf("启动清理数据库失败：%v", err)
			} else {
				logx.Infof("已清理数据库表（publications/posts/export_runs）")
			}
		}
	}

	if *listOnly {
		// 6) 调试：仅发现文章并打印后退出；发现失败时回落到历史缓存
		base, err := discover.Normalize(cfg.URL)
		if err != nil {
			log.Fatalf("normalize url: %v", err)
		}
		pub, posts, err := discover.Load(ctx, cl, base)
		if err != nil {
			if st == nil {
				logx.Errorf("发现出版物失败：%v", err)
				os.Exit(1)
			}
			cached, cacheErr := st.ListPosts(ctx, base)
			if cacheErr != nil || len(cached) == 0 {
				logx.Errorf("发现出版物失败：%v（缓存亦不可用）", err)
				os.Exit(1)
			}
			logx.Warnf("发现出版物失败：%v，改用历史缓存", err)
			logx.Infof("缓存中共 %d 篇", len(cached))
			for _, p := range cached {
				logx.Infof("- %s [%s] %s", p.Title, p.PublishedAt, p.URL)
			}
			return
		}
		logx.Infof("出版物 %q（作者=%q），共 %d 篇", pub.Title, pub.Author, len(posts))
		for _, p := range posts {
			logx.Infof("- %s [%s] %s", p.Title, p.PublishedAt, p.URL)
		}
		if st != nil {
			runs, err := st.ListRuns(ctx, 5)
			if err != nil {
				logx.Warnf("读取导出历史失败：%v", err)
			}
			for _, r := range runs {
				logx.Infof("历史：%s [%s] 成功 %d 失败 %d（%s）",
					r.Publication, r.Formats, r.Succeeded, r.FailedCount,
					r.FinishedAt.Format("2006-01-02 15:04"))
			}
		}
		return
	}

	// 7) 运行导出任务
	run := job.New(cfg, cl, st)
	logx.Infof("开始导出：formats=%v granularity=%s", cfg.Formats, cfg.Granularity)
	result, err := run.Run(ctx)
	if err != nil {
		logx.Errorf("导出失败：%v", err)
		os.Exit(1)
	}
	logx.Infof("导出完成：成功 %d 篇，失败 %d 篇", len(result.Succeeded), len(result.Failed))
	for _, f := range result.Failed {
		logx.Warnf("失败：%s（%s）", f.PostID, f.Reason)
	}
	for _, file := range result.OutputFiles {
		logx.Infof("已写出 %s", file)
	}
}
