package metrics

// Volumes are the filesystem labels used by the retry metrics.
var Volumes = []string{"photos", "previews", "thumbnails", "database", "unknown"}

// DerivativeKinds are the source kinds a derivative can be generated from.
var DerivativeKinds = []string{"image", "heif", "video", "unsupported"}

// DerivativeTargets are the derivative trees.
var DerivativeTargets = []string{"preview", "thumbnail"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"stat", "open"} {
		for _, vol := range Volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, kind := range DerivativeKinds {
		for _, status := range []string{"success", "error", "timeout"} {
			DerivativeGenerationsTotal.WithLabelValues(kind, status)
		}
		DerivativeGenerationDuration.WithLabelValues(kind)
	}

	for _, tool := range []string{"ffmpegthumbnailer", "heif-thumbnailer"} {
		for _, status := range []string{"success", "error", "timeout"} {
			DerivativeToolRuns.WithLabelValues(tool, status)
		}
	}

	for _, target := range DerivativeTargets {
		for _, outcome := range []string{"hit", "generated", "failed", "abandoned"} {
			DerivativeRequestsTotal.WithLabelValues(target, outcome)
		}
		for _, result := range []string{"generated", "present", "missing_source", "failed"} {
			BackfillFiles.WithLabelValues(target, result)
		}
		DerivativeWaits.WithLabelValues(target)
		DerivativesInFlight.WithLabelValues(target)
		BackfillRunning.WithLabelValues(target)
		BackfillLastDuration.WithLabelValues(target)
	}

	for _, reason := range []string{"no_timestamp", "unreadable", "depth"} {
		IndexerFilesSkipped.WithLabelValues(reason)
	}
	for _, source := range []string{"sidecar", "exif", "filename"} {
		IndexerTimestampSource.WithLabelValues(source)
	}
	for _, status := range []string{"success", "error"} {
		IndexerRunsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"get_users", "get_user", "insert_user", "delete_user",
		"get_photos", "get_photos_by_user", "get_photo", "insert_photos", "delete_photos", "update_photo"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, t := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(t)
	}
}
