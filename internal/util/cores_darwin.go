package util

import "golang.org/x/sys/unix"

func platformPhysicalCores() int {
	n, err := unix.SysctlUint32("hw.physicalcpu")
	if err != nil {
		return 0
	}
	return int(n)
}
