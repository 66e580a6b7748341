//go:build !linux

package filesystem

import (
	"io/fs"
	"time"
)

// CreatedTime falls back to the modification time on platforms where the
// stat layout differs.
func CreatedTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
