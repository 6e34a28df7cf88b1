package util

import (
	"fmt"
	"runtime"
)

const mib = 1 << 20

// MemoryUsage is a point-in-time view of the process heap for health output.
type MemoryUsage struct {
	HeapAllocMiB uint64
	HeapSysMiB   uint64
	Goroutines   int
}

func ReadMemoryUsage() MemoryUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryUsage{
		HeapAllocMiB: m.HeapAlloc / mib,
		HeapSysMiB:   m.HeapSys / mib,
		Goroutines:   runtime.NumGoroutine(),
	}
}

func (u MemoryUsage) String() string {
	return fmt.Sprintf("%d/%d MiB heap, %d goroutines", u.HeapAllocMiB, u.HeapSysMiB, u.Goroutines)
}
