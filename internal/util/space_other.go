//go:build !(linux || darwin || freebsd)

package util

// GetAvailableSpace is not supported on this platform and returns 0.
func GetAvailableSpace(string) uint64 {
	return 0
}
