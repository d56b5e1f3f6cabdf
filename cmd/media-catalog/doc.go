// Package main provides the media-catalog command.
//
// media-catalog keeps a catalog of every user's photos and videos and the
// previews and thumbnails generated from them.
//
// # Commands
//
//   - serve: runs the periodic indexer, a background derivative backfill
//     and the HTTP API
//   - scan: reconciles the catalog with the media directories once
//   - previews generate: fills in missing previews and thumbnails, in
//     parallel or throttled by memory pressure with --background
//   - users add|list|remove: manages the users that own media directories
//   - version: prints build information
//
// # Layout on disk
//
// Originals live at STORAGE_DIR/<user>/<file> or
// STORAGE_DIR/<user>/<folder>/<file>. Derivatives are written to
// PREVIEW_DIR/<user id>/<photo id>.<ext> and THUMBNAIL_DIR with the same
// layout, where ext is heic or heif for HEIF sources and jpg otherwise.
//
// # Memory Management
//
// MEMORY_LIMIT sets GOMEMLIMIT to MEMORY_RATIO of the given byte count
// unless GOMEMLIMIT is already set. A background backfill pauses while heap
// usage is above the critical water mark and resumes below the high one.
package main
