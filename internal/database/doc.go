// Package database is the SQLite-backed store for a photo library.
//
// It holds two entities: Folders (registered source directories) and Photos
// (one row per imported image file), plus a small key/value metadata table.
// Every multi-row write runs in a single transaction, so a cascading folder
// delete or a batch import either commits completely or leaves the database
// unchanged.
//
// Photo lifecycle:
//
//	Active -> SoftDeleted (SoftDelete)
//	SoftDeleted -> Active (Restore)
//	SoftDeleted -> removed (Purge)
//
// Purging an active photo is rejected with ErrInvalidTransition. Nothing in
// this package touches files on disk.
//
// Search builds its WHERE clause from independent optional predicates; see
// SearchOptions. The schema is versioned with golang-migrate (see the
// migrations subpackage) and applied on New.
package database
