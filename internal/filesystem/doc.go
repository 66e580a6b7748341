/*
Package filesystem wraps the file operations the library performs on source
images and on its own cache files.

Source folders are frequently on network shares or removable drives, so
StatWithRetry and OpenWithRetry retry a small, bounded number of times on
transient errors (ESTALE, EINTR, EAGAIN) with capped exponential backoff and
then give up; every other error returns immediately:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

WriteFileAtomic writes derived artifacts (thumbnails, the metadata cache
document) through a temp file in the destination directory followed by a
rename, so readers see either the old file or the complete new one.

CreatedTime returns the best available creation timestamp for a file:
the inode change time on Linux, the modification time elsewhere.
*/
package filesystem
