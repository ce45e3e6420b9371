package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateFileName returns a collision-resistant storage name that keeps the
// original extension, e.g. 1718000000000-3f2a9c1b7d4e4f60.pdf.
func GenerateFileName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), random, ext)
}

// FormatFileSize renders a byte count as "1.5 MB".
func FormatFileSize(size int64) string {
	if size == 0 {
		return "0 Bytes"
	}

	units := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(size)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}

	formatted := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
	return formatted + " " + units[i]
}

// FileIcon maps a mime type to the icon name the client renders.
func FileIcon(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case mimeType == "application/pdf":
		return "pdf"
	case strings.Contains(mimeType, "word"):
		return "document"
	case strings.Contains(mimeType, "excel"), strings.Contains(mimeType, "spreadsheet"):
		return "spreadsheet"
	case strings.Contains(mimeType, "powerpoint"), strings.Contains(mimeType, "presentation"):
		return "presentation"
	case strings.HasPrefix(mimeType, "text/"):
		return "text"
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "rar"),
		strings.Contains(mimeType, "7z"), strings.Contains(mimeType, "tar"),
		strings.Contains(mimeType, "gzip"):
		return "archive"
	default:
		return "file"
	}
}
