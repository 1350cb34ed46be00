package util

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const sysfsCPUDir = "/sys/devices/system/cpu"

func platformPhysicalCores() int {
	return countSysfsCores(sysfsCPUDir)
}

// countSysfsCores counts distinct (package, core) pairs under a sysfs cpu
// directory. It returns 0 when no topology is readable.
func countSysfsCores(root string) int {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0
	}

	cores := make(map[string]struct{})
	for _, entry := range entries {
		name := entry.Name()
		id, ok := strings.CutPrefix(name, "cpu")
		if !ok || id == "" {
			continue
		}
		if _, err := strconv.Atoi(id); err != nil {
			continue
		}

		topology := filepath.Join(root, name, "topology")
		core, err := readTrimmed(filepath.Join(topology, "core_id"))
		if err != nil {
			continue
		}
		// Missing package ids are treated as a single socket.
		pkg, _ := readTrimmed(filepath.Join(topology, "physical_package_id"))
		cores[pkg+":"+core] = struct{}{}
	}
	return len(cores)
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
