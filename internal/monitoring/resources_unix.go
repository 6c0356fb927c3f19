//go:build unix

package monitoring

import "syscall"

// cpuTimes returns cumulative user and system CPU time in milliseconds.
func cpuTimes() (userMs, systemMs float64) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, 0
	}
	userMs = float64(ru.Utime.Sec)*1000 + float64(ru.Utime.Usec)/1000
	systemMs = float64(ru.Stime.Sec)*1000 + float64(ru.Stime.Usec)/1000
	return userMs, systemMs
}
