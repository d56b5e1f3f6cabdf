// Package mediatypes provides shared type definitions for media file
// handling across media-catalog.
//
// It is a dependency-free foundation imported by the timestamp, indexer,
// media and database packages. It answers three questions about a file
// name: what MIME type its extension maps to, which derivative pipeline
// handles it (FileType), and which extension its derivatives are stored
// under (DerivativeExtension).
//
//	ext := mediatypes.Ext("IMG_0001.HEIC")        // ".heic"
//	mediatypes.GetFileType(ext)                   // FileTypeHeif
//	mediatypes.DerivativeExtension("IMG_0001.HEIC") // "heic"
//	mediatypes.DerivativeExtension("clip.mp4")      // "jpg"
package mediatypes
