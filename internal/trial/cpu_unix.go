//go:build unix

package trial

import (
	"time"

	"golang.org/x/sys/unix"
)

// childCPUTime returns the user plus system CPU seconds consumed by all
// waited-for child processes.
func childCPUTime() float64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano()).Seconds()
}
