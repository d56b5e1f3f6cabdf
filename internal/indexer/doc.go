// Package indexer keeps the photo catalog in line with the files on disk.
//
// A scan has two phases. The Scanner walks each user's root (at most one
// folder deep) in parallel and turns every file into a draft with a
// creation time from the timestamp package. Reconcile then compares each
// user's drafts with that user's catalog rows: unknown full names are
// inserted in chunks and rows whose file disappeared are deleted.
//
// The Indexer runs scans on a timer, on demand through Trigger, or
// synchronously through ScanNewFiles, and never runs two at once.
package indexer
