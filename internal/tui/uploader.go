package tui

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Uploader 把本地文件变成可发送的 URL。默认实现内联为 data URL，
// 调用方可注入走对象存储的实现。
type Uploader interface {
	Upload(path string) (string, error)
}

type dataURLUploader struct{}

func (dataURLUploader) Upload(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	mediaType := imageMediaType(path)
	if mediaType == "" {
		return "", fmt.Errorf("unsupported attachment type: %s", filepath.Ext(path))
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// imageMediaType 只认图片扩展名，其余返回空串。
func imageMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
