// Package mediatypes classifies source files by extension.
package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultImportExtensions lists the image formats imported when a folder is
// added. Every entry is decodable by the thumbnail pipeline.
var DefaultImportExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp",
}

// MimeTypes maps image extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".webp": "image/webp",
}

// ExtensionSet is a lookup of lowercase extensions including the dot.
type ExtensionSet map[string]bool

// NewExtensionSet normalizes exts ("JPG", ".jpg" and "jpg" are equivalent).
// An empty list yields DefaultImportExtensions.
func NewExtensionSet(exts []string) ExtensionSet {
	if len(exts) == 0 {
		exts = DefaultImportExtensions
	}
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// Matches reports whether path has one of the set's extensions.
func (s ExtensionSet) Matches(path string) bool {
	return s[strings.ToLower(filepath.Ext(path))]
}

// List returns the extensions in sorted order.
func (s ExtensionSet) List() []string {
	exts := make([]string, 0, len(s))
	for ext := range s {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// GetMimeType returns the MIME type for path's extension, or
// "application/octet-stream".
func GetMimeType(path string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}
