// Package handlers provides the HTTP surface of the catalog server.
//
// It includes handlers for:
//   - Serving previews, thumbnails and originals of a user's photos
//   - Triggering a catalog scan and a derivative backfill
//   - Health, readiness, version and Prometheus metrics
//
// Everything under /api requires HTTP basic auth against the user cache.
package handlers
