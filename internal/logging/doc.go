// Package logging provides the leveled logger used throughout the photo
// library.
//
// Levels, from most to least verbose:
//   - DEBUG: cache hits, per-file import decisions
//   - INFO: lifecycle transitions, library open/close, import summaries
//   - WARN: degraded reads (missing or undecodable source images)
//   - ERROR: storage failures
//
// The level comes from LOG_LEVEL (debug, info, warn, error) or DEBUG=true,
// and can be overridden at runtime with SetLevel, e.g. from a --verbose flag.
package logging
