package parallel

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultWorkers returns the number of parallel execution units available
// to the process: the host's logical CPU count, capped by GOMAXPROCS.
// It is always at least 1.
func DefaultWorkers() int {
	procs := runtime.GOMAXPROCS(0)
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 || n > procs {
		n = procs
	}
	return max(n, 1)
}
