//go:build !unix

package monitoring

// cpuTimes is unavailable on this platform; CPU fields stay zero.
func cpuTimes() (userMs, systemMs float64) { return 0, 0 }
