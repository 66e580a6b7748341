// Package media renders and caches photo thumbnails and probes image files.
//
// ThumbnailCache maps a (photo ID, source path) pair to a downscaled JPEG under
// the library's thumbnail directory. A thumbnail is generated at most once per
// source modification and size: repeated requests are served from disk without
// decoding the source, and concurrent requests for the same key share one
// generation. Each thumbnail carries its source's modification time.
//
// Source files are only ever read. When a source is missing or cannot be
// decoded, GetThumbnail logs the condition and falls back to the source path.
//
// Decoding goes through imaging (with EXIF auto-orientation), then the
// standard image decoders (including bmp, tiff and webp from x/image), and
// finally libvips when InitVips has been called and libvips is present.
package media
