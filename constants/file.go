package constants

import (
	"path/filepath"
	"strings"
)

// Format is the coarse input classification the pipeline branches on.
type Format string

const (
	PDF   Format = "PDF"
	IMAGE Format = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for receipt uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtOf returns the normalized extension of a path.
func ExtOf(path string) string {
	return NormalizeExt(filepath.Ext(path))
}

// MapExtToFormat maps a (possibly dotted, mixed-case) extension to a Format.
// Returns "" for anything the pipeline cannot handle.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}

// IsAllowedExt reports whether a file extension is in the allowed set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
