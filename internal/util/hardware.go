package util

import (
	"os"
	"runtime"
)

// Hardware describes the CPU resources trial timings are measured on.
type Hardware struct {
	Hostname      string
	LogicalCores  int
	PhysicalCores int
}

// DetectHardware inspects the host. PhysicalCores falls back to half the
// logical count when the platform cannot report its topology.
func DetectHardware() Hardware {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	logical := runtime.NumCPU()
	return Hardware{
		Hostname:      hostname,
		LogicalCores:  logical,
		PhysicalCores: physicalCores(logical, platformPhysicalCores()),
	}
}

// SMT reports whether the host runs more than one hardware thread per core.
func (h Hardware) SMT() bool {
	return h.LogicalCores > h.PhysicalCores
}

func physicalCores(logical, detected int) int {
	if detected > 0 && detected <= logical {
		return detected
	}
	if logical > 1 {
		return logical / 2
	}
	return 1
}
