// Package timestamp works out when a media file was created.
//
// A Resolver tries an ordered list of heuristics and stops at the first one
// that produces a time:
//
//  1. a Google Takeout style JSON sidecar next to the file,
//  2. the EXIF DateTimeOriginal, DateTime or DateTimeDigitized tag,
//  3. a date embedded in the file name.
//
// Returned times are naive wall-clock values carried in UTC.
package timestamp
