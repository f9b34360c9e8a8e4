package epub

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"go-newsletter-exporter/internal/model"
)

// Cover 为归一化后的封面资源：字节、嗅探后的媒体类型与文件扩展名。
type Cover struct {
	Data      []byte
	MediaType string
	Ext       string
}

// NewCover 归一化封面：空字节是硬错误，媒体类型先嗅探魔数、
// 再回退声明值、最终回退 image/jpeg。
func NewCover(data []byte, declaredType string) (*Cover, error) {
	if len(data) == 0 {
		return nil, &model.AssemblyError{Op: "cover", Err: fmt.Errorf("cover image is empty")}
	}
	mediaType := sniffMediaType(data, declaredType)
	return &Cover{Data: data, MediaType: mediaType, Ext: extensionFor(mediaType)}, nil
}

// DecodeDataURL 解析 data URL，返回字节与声明的媒体类型。
// 只接受 base64 编码形态。
func DecodeDataURL(raw string) ([]byte, string, error) {
	comma := strings.Index(raw, ",")
	if comma < 0 {
		return nil, "", &model.AssemblyError{Op: "cover", Err: fmt.Errorf("invalid data URL: missing comma")}
	}
	meta := raw[:comma]
	if !strings.Contains(meta, ";base64") {
		return nil, "", &model.AssemblyError{Op: "cover", Err: fmt.Errorf("invalid data URL: only base64 payloads are supported")}
	}
	mediaType := strings.TrimPrefix(strings.SplitN(meta, ";", 2)[0], "data:")
	data, err := base64.StdEncoding.DecodeString(raw[comma+1:])
	if err != nil {
		return nil, "", &model.AssemblyError{Op: "cover", Err: fmt.Errorf("decode data URL: %w", err)}
	}
	return data, mediaType, nil
}

// sniffMediaType 先按魔数嗅探，非图片再信声明值，兜底 jpeg。
func sniffMediaType(data []byte, declared string) string {
	if detected := http.DetectContentType(data); strings.HasPrefix(detected, "image/") {
		return detected
	}
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return "image/jpeg"
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "img"
	}
}
