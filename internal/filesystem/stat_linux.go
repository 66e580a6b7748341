//go:build linux

package filesystem

import (
	"io/fs"
	"syscall"
	"time"
)

// CreatedTime returns the inode change time, which is the closest thing to a
// creation time most Linux filesystems expose through stat(2).
func CreatedTime(info fs.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}
