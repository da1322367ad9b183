package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// RecommendWorkers picks a render parallelism for frames of w×h pixels.
// It starts from the logical CPU count and caps it so that the frames held
// by workers and the reorder window (two buffers per transition task) use
// at most a quarter of the available memory.
func RecommendWorkers(w, h int) int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}

	vm, err := mem.VirtualMemory()
	if err == nil && vm.Available > 0 {
		perWorker := uint64(w) * uint64(h) * 4 * 3
		if perWorker > 0 {
			limit := int(vm.Available / 4 / perWorker)
			if limit < n {
				n = limit
			}
		}
	}

	return max(n, 1)
}
