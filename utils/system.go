package utils

import (
	"fmt"
	"math"
	"runtime"
)

// MemUsage summarizes the Go heap, used in verbose run reports
func MemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const MiB = 1 << 20
	return fmt.Sprintf("heap in use = %v MiB, total allocated = %v MiB, from system = %v MiB, GC cycles = %v",
		m.HeapInuse/MiB, m.TotalAlloc/MiB, m.Sys/MiB, m.NumGC)
}

// Diverged reports whether any value is NaN or infinite
func Diverged(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
