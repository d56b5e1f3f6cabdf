// Package storage maps catalog-relative paths onto the three storage trees:
// original photos (<root>/<user>/[<folder>/]<name>), previews and thumbnails
// (<root>/<owner id>/<photo id>.<ext>).
package storage
