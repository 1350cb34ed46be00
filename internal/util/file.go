package util

import (
	"fmt"
	"os"
)

// FileSize returns the size in bytes of the file at path.
func FileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return uint64(info.Size()), nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// EnsureDirectory creates path and any missing parents.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}
