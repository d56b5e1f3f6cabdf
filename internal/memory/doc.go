// Package memory keeps derivative generation inside the container's memory
// budget.
//
// [ApplyLimit] derives GOMEMLIMIT from the container limit (MEMORY_LIMIT,
// usually injected through the Kubernetes Downward API) minus a reserve for
// ffmpegthumbnailer, heif-thumbnailer and libvips, which allocate outside
// the Go heap:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// A GOMEMLIMIT set in the environment always wins.
//
// [Monitor] samples heap usage against that limit. Once usage crosses the
// critical mark it reports paused until usage falls back under the high
// mark; [Monitor.WaitIfPaused] blocks background work until then. Without a
// limit the monitor never pauses.
package memory
