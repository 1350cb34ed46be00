package util

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempDir is a uniquely named scratch directory.
type TempDir struct {
	path string
}

// Path returns the directory path.
func (d *TempDir) Path() string {
	return d.path
}

// Cleanup removes the directory and everything in it.
func (d *TempDir) Cleanup() error {
	if d.path == "" {
		return nil
	}
	return os.RemoveAll(d.path)
}

// EnsureDirectoryWritable verifies that path is an existing, writable directory.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory %s is not accessible: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	probe, err := os.CreateTemp(path, ".scv_write_test_*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// CreateTempDir creates a directory named <prefix>_<random> inside baseDir.
func CreateTempDir(baseDir, prefix string) (*TempDir, error) {
	if err := EnsureDirectory(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	suffix, err := generateRandomString(8)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(baseDir, prefix+"_"+suffix)
	if err := os.Mkdir(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TempDir{path: path}, nil
}

// CleanupStaleTempFiles removes entries in dir whose names start with
// prefix and that are older than maxAge. A missing dir is not an error.
func CleanupStaleTempFiles(dir, prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	count := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err == nil {
			count++
		}
	}
	return count, nil
}

// CheckDiskSpace reports whether dir has at least required bytes free.
// When free space cannot be determined it returns true. logger, if set,
// receives a warning for insufficient space.
func CheckDiskSpace(dir string, required uint64, logger func(format string, args ...any)) bool {
	available := GetAvailableSpace(dir)
	if available == 0 || available >= required {
		return true
	}
	if logger != nil {
		logger("only %s free in %s, about %s needed", FormatBytes(available), dir, FormatBytes(required))
	}
	return false
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateRandomString returns n random lowercase alphanumerics.
func generateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random name: %w", err)
	}
	for i, b := range buf {
		buf[i] = randomAlphabet[int(b)%len(randomAlphabet)]
	}
	return string(buf), nil
}
