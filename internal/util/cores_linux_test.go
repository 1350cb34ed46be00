package util

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTopology(t *testing.T, root, cpu, pkg, core string) {
	t.Helper()
	dir := filepath.Join(root, cpu, "topology")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if core != "" {
		if err := os.WriteFile(filepath.Join(dir, "core_id"), []byte(core+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if pkg != "" {
		if err := os.WriteFile(filepath.Join(dir, "physical_package_id"), []byte(pkg+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCountSysfsCores(t *testing.T) {
	t.Run("smt siblings share a core", func(t *testing.T) {
		root := t.TempDir()
		writeTopology(t, root, "cpu0", "0", "0")
		writeTopology(t, root, "cpu1", "0", "1")
		writeTopology(t, root, "cpu2", "0", "0")
		writeTopology(t, root, "cpu3", "0", "1")
		if got := countSysfsCores(root); got != 2 {
			t.Errorf("countSysfsCores() = %d, want 2", got)
		}
	})

	t.Run("core ids repeat across sockets", func(t *testing.T) {
		root := t.TempDir()
		writeTopology(t, root, "cpu0", "0", "0")
		writeTopology(t, root, "cpu1", "1", "0")
		if got := countSysfsCores(root); got != 2 {
			t.Errorf("countSysfsCores() = %d, want 2", got)
		}
	})

	t.Run("non cpu entries and missing ids are ignored", func(t *testing.T) {
		root := t.TempDir()
		writeTopology(t, root, "cpu0", "", "0")
		writeTopology(t, root, "cpufreq", "0", "5")
		writeTopology(t, root, "cpu1", "0", "")
		if err := os.MkdirAll(filepath.Join(root, "cpuidle"), 0755); err != nil {
			t.Fatal(err)
		}
		if got := countSysfsCores(root); got != 1 {
			t.Errorf("countSysfsCores() = %d, want 1", got)
		}
	})

	t.Run("missing root", func(t *testing.T) {
		if got := countSysfsCores(filepath.Join(t.TempDir(), "absent")); got != 0 {
			t.Errorf("countSysfsCores() = %d, want 0", got)
		}
	})
}
