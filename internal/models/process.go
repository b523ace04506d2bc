package models

import "sort"

// TopProcessCount is the number of processes kept for presentation each tick.
const TopProcessCount = 10

// ProcessSample captures CPU/memory usage of one live process.
type ProcessSample struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
}

// ProcessSnapshot is the result of one process enumeration. Readings holds
// every process with a determinate CPU reading, in enumeration order. Live
// holds every pid observed alive, including ones without a reading yet.
// Failed is set when the process list itself could not be read; Live is then
// empty and says nothing about which processes exited.
type ProcessSnapshot struct {
	Readings []ProcessSample
	Live     map[int32]struct{}
	Failed   bool
}

// IsLive reports whether pid was observed during the enumeration.
func (p ProcessSnapshot) IsLive(pid int32) bool {
	_, ok := p.Live[pid]
	return ok
}

// Top returns up to k readings ordered by CPU descending. Ties keep their
// enumeration order. The snapshot is not modified.
func (p ProcessSnapshot) Top(k int) []ProcessSample {
	return TopByCPU(p.Readings, k)
}

// TopByCPU returns a copy of the k busiest processes, stable on ties.
func TopByCPU(readings []ProcessSample, k int) []ProcessSample {
	sorted := make([]ProcessSample, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CPUPercent > sorted[j].CPUPercent
	})
	if k >= 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
