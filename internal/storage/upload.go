package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// MaxUploadBytes is the hard ceiling for a single upload.
const MaxUploadBytes int64 = 100 * 1024 * 1024

var (
	errMissingBuffer = errors.New("missing file buffer")
	errMissingName   = errors.New("missing file name")
)

var allowedExtensions = []string{
	".jpg", ".jpeg", ".png",
	".pdf",
	".txt", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".mp4", ".mkv", ".flv", ".avi", ".mov",
	".mp3",
	".psd", ".ai",
	".py", ".js", ".ts", ".json", ".jsx", ".java", ".c", ".html", ".htm", ".css",
}

// AllowedExtensions returns a copy of the upload allow-list.
func AllowedExtensions() []string {
	out := make([]string, len(allowedExtensions))
	copy(out, allowedExtensions)
	return out
}

// ValidateUpload applies the extension allow-list and the size limit. limit is clamped to
// MaxUploadBytes; zero or less means MaxUploadBytes. The returned messages are meant for a
// batched validation error.
func ValidateUpload(name string, size int64, limit int64) []string {
	if limit <= 0 || limit > MaxUploadBytes {
		limit = MaxUploadBytes
	}
	var msgs []string
	if baseName(name) == "" {
		return []string{"File name is required"}
	}
	ext := strings.ToLower(path.Ext(name))
	allowed := false
	for _, e := range allowedExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		msgs = append(msgs, fmt.Sprintf("Only %s files are allowed", strings.Join(allowedExtensions, ", ")))
	}
	if size > limit {
		msgs = append(msgs, fmt.Sprintf("File too large, the limit is %dMB", limit/(1024*1024)))
	}
	return msgs
}
