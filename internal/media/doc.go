// Package media produces previews and thumbnails of photos and videos.
//
// A [Generator] turns one source file into one derivative. Raster images
// are decoded, fill-resized and re-encoded in process. HEIC/HEIF files and
// videos are handed to heif-thumbnailer and ffmpegthumbnailer, each under a
// hard timeout after which the child is killed and reaped.
//
// A [Manager] sits in front of a Generator and guarantees at most one
// generation per photo at a time. Concurrent requests for the same photo
// wait for the running generation and then look at the file system again;
// the derivative trees are the only cache.
//
// [Backfill] walks the whole catalog and fills in missing derivatives,
// either in parallel in the foreground or one by one in the background.
package media
