// Package indexer imports image files into the library database.
//
// A folder import lists the supported images directly inside a directory
// (subdirectories and hidden files are ignored), probes each file and reads
// its EXIF on a bounded worker pool, then inserts every row in one
// transaction. Files that are missing or undecodable are reported per file
// and never stop the rest of the batch. Paths that are already imported are
// skipped, so re-importing a folder only picks up new files.
package indexer
