// Package workers sizes worker pools from the CPU quota the process actually
// has.
//
// runtime.NumCPU reports host CPUs even inside a container with a CPU limit.
// GOMAXPROCS follows the cgroup quota (Go 1.25 also tracks changes to it), so
// worker counts are derived from it instead:
//
//	n := workers.ForCPU(8) // one worker per usable CPU, at most 8
//
// Operators can pin the count with DERIVATIVE_WORKERS, which still respects
// the caller's limit.
package workers
