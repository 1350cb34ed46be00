//go:build !linux && !darwin

package util

func platformPhysicalCores() int {
	return 0
}
