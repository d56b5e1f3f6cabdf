// Package filesystem wraps os.Stat and os.Open with retries for stale NFS
// file handles (ESTALE), which show up when the photo or cache volumes are
// network mounts that are remounted underneath the process.
//
// Only ESTALE is retried, with exponential backoff capped at MaxBackoff.
// Every other error is returned on the first attempt. Metrics are labelled
// by operation and by volume, resolved through a VolumeResolver configured
// once at startup.
package filesystem
