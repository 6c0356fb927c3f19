// Package monitoring - resources.go samples process resource usage.
package monitoring

import "runtime"

const bytesPerMB = 1024 * 1024

// CaptureResources reads current heap and CPU usage for attachment to a
// Sample or snapshot. ReadMemStats costs tens of microseconds; callers on
// hot paths should sample rather than call per-request.
func CaptureResources() ResourceSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	rs := ResourceSnapshot{
		HeapUsedMB:  float64(ms.HeapAlloc) / bytesPerMB,
		HeapTotalMB: float64(ms.HeapSys) / bytesPerMB,
		ExternalMB:  float64(ms.Sys-ms.HeapSys) / bytesPerMB,
	}
	rs.CPUUserMs, rs.CPUSystemMs = cpuTimes()
	return rs
}
