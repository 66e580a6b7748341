// Package startup resolves the configuration of a photoref project.
//
// # Project Layout
//
// A project is any directory the user points photoref at. All state lives
// in a hidden directory below it:
//
//	<project>/.ref/
//	    config.toml       optional settings, written by InitProject
//	    ref.db            SQLite data store
//	    photo_meta.json   file metadata cache
//	    thumbnails/       cached JPEG thumbnails
//
// # Configuration
//
// [LoadConfig] reads config.toml (BurntSushi/toml) and then applies
// environment overrides:
//
//   - PHOTOREF_THUMBNAIL_SIZE: thumbnail bounding box in pixels (default: 260)
//   - PHOTOREF_THUMBNAIL_QUALITY: JPEG quality 1-100 (default: 85)
//   - PHOTOREF_WORKERS: worker pool size (default: one per CPU, max 8)
//   - PHOTOREF_USE_VIPS: decode through libvips when available (default: false)
//   - LOG_LEVEL: logging level - debug, info, warn, error (default: info)
//
// Unknown keys in config.toml are logged and ignored. Out of range values
// are rejected.
//
// # Build Information
//
// Version, Commit and BuildTime are injected at build time:
//
//	go build -ldflags "-X photoref/internal/startup.Version=1.0.0" ./cmd/photoref
package startup
