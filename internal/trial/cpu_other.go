//go:build !unix

package trial

// childCPUTime is unavailable; process state times are used instead.
func childCPUTime() float64 {
	return 0
}
