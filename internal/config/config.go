// 包 config 负责加载与校验导出任务配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-newsletter-exporter/internal/model"
)

// Config 为一次导出任务的完整配置。
// 与格式/选择/输出相关的硬性校验（无格式、无输出目录、选择为空）
// 放在 job 层的任务校验中，这里只做默认值与取值合法性。
type Config struct {
	URL             string                `yaml:"URL"`
	Formats         []model.Format        `yaml:"FORMATS"`
	Mode            model.SelectMode      `yaml:"MODE"`
	SelectedPostIDs []string              `yaml:"SELECTED_POST_IDS"`
	OrderMode       model.OrderMode       `yaml:"ORDER_MODE"`
	ManualOrder     []string              `yaml:"MANUAL_ORDER"`
	SortDirection   model.SortDirection   `yaml:"SORT_DIRECTION"`
	Granularity     model.Granularity     `yaml:"GRANULARITY"`
	CoverMode       model.CoverMode       `yaml:"COVER_MODE"`
	// CustomCover：文件路径或 base64 data URL，仅 COVER_MODE=custom 时使用
	CustomCover    string                `yaml:"CUSTOM_COVER"`
	MetadataFields []model.MetadataField `yaml:"METADATA_FIELDS"`
	OutputDir      string                `yaml:"OUTPUT_DIR"`
	Retry          int                   `yaml:"RETRY"`
	RateLimitRPS   float64               `yaml:"RATE_LIMIT_RPS"`
	Proxy          Proxy                 `yaml:"PROXY"`
	Database       Database              `yaml:"DATABASE"`
	History        bool                  `yaml:"HISTORY"`
	ResetOnStart   bool                  `yaml:"RESET_ON_START"`
	LogLevel       string                `yaml:"LOG_LEVEL"`
	LogFormat      string                `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale      string                `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor       string                `yaml:"LOG_COLOR"`  // auto|always|never
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./history.db
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	for i, f := range c.Formats {
		c.Formats[i] = model.Format(strings.ToLower(strings.TrimSpace(string(f))))
		switch c.Formats[i] {
		case model.FormatTXT, model.FormatEPUB:
		default:
			return model.NewConfigError("unsupported format: %s", f)
		}
	}
	if c.Mode == "" {
		c.Mode = model.SelectEntireProfile
	}
	if c.Mode != model.SelectEntireProfile && c.Mode != model.SelectSpecificPosts {
		return model.NewConfigError("unsupported mode: %s", c.Mode)
	}
	if c.OrderMode == "" {
		c.OrderMode = model.OrderByDate
	}
	if c.OrderMode != model.OrderByDate && c.OrderMode != model.OrderManual {
		return model.NewConfigError("unsupported order mode: %s", c.OrderMode)
	}
	if c.SortDirection == "" {
		c.SortDirection = model.SortDesc
	}
	if c.SortDirection != model.SortAsc && c.SortDirection != model.SortDesc {
		return model.NewConfigError("unsupported sort direction: %s", c.SortDirection)
	}
	if c.Granularity == "" {
		c.Granularity = model.GranularityPerPost
	}
	if c.Granularity != model.GranularityPerPost && c.Granularity != model.GranularityCombined {
		return model.NewConfigError("unsupported granularity: %s", c.Granularity)
	}
	if c.CoverMode == "" {
		c.CoverMode = model.CoverPublication
	}
	if c.CoverMode != model.CoverPublication && c.CoverMode != model.CoverCustom {
		return model.NewConfigError("unsupported cover mode: %s", c.CoverMode)
	}
	if c.CoverMode == model.CoverCustom && strings.TrimSpace(c.CustomCover) == "" {
		return model.NewConfigError("custom cover mode requires CUSTOM_COVER")
	}
	if len(c.MetadataFields) == 0 {
		c.MetadataFields = []model.MetadataField{
			model.FieldAuthor, model.FieldPublishedAt, model.FieldURL,
		}
	}
	if c.Retry < 0 {
		return model.NewConfigError("RETRY must be >= 0")
	}
	if c.Retry == 0 {
		c.Retry = 3
	}
	if c.RateLimitRPS < 0 {
		return model.NewConfigError("RATE_LIMIT_RPS must be >= 0")
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return model.NewConfigError("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./history.db"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}
