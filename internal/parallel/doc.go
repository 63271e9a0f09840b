// Package parallel runs the sampling passes of a density map session.
//
// It provides a work-stealing WorkerPool, the shuffling Partition that
// splits a pass into one chunk per worker, the host-sized DefaultWorkers
// count and a CPU Throttle that refinement passes can wait on.
package parallel
