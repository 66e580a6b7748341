package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// series shows up in Snapshot before its first event.
func InitializeMetrics() {
	for _, op := range []string{
		"create_folder", "rename_folder", "delete_folder", "get_folder", "list_folders",
		"import_photo", "import_batch", "get_photo", "update_photo", "set_favorite",
		"soft_delete", "restore", "purge", "reassign_folder", "list_photos", "search",
		"count_photos", "get_metadata", "set_metadata",
	} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error_source", "error_encode", "error_write"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, kind := range []string{"load", "save", "probe"} {
		MetadataCacheErrors.WithLabelValues(kind)
	}

	for _, result := range []string{"imported", "skipped", "failed"} {
		ImportFilesTotal.WithLabelValues(result)
	}

	for _, state := range []string{"active", "trash", "favorite"} {
		LibraryPhotos.WithLabelValues(state)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}
