// 错误分类：配置错误在任何 I/O 前暴露；传输错误由 fetch 包装；
// 打包错误中止任务；全部文章失败时任务整体失败。
package model

import (
	"errors"
	"fmt"
)

// ErrAllPostsFailed 表示所有文章抓取均失败，任务不产生任何输出。
var ErrAllPostsFailed = errors.New("all post downloads failed; no output generated")

// ConfigError 为任务配置错误（缺格式/缺输出目录/选择结果为空等）。
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

// NewConfigError 创建配置错误。
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError 判断错误链中是否包含配置错误。
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TransportError 为重试耗尽后的网络/HTTP 失败。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.URL, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError 判断错误链中是否包含传输错误。
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AssemblyError 为归档/文件系统写入失败（任务级致命）。
type AssemblyError struct {
	Op  string
	Err error
}

func (e *AssemblyError) Error() string { return fmt.Sprintf("assembly %s: %v", e.Op, e.Err) }
func (e *AssemblyError) Unwrap() error { return e.Err }
