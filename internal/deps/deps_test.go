package deps

import (
	"os"
	"path/filepath"
	"testing"

	"platter/internal/config"
	"platter/internal/disk"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset", Command: "  "}})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected unset command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestRequirementsParityPool(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(cfg, disk.BackendParityPool)

	names := requirementNames(reqs)
	for _, want := range []string{"parted", "partprobe", "mkfs.ext4", "mount", "umount", "snapraid", "mergerfs"} {
		if !names[want] {
			t.Errorf("parity pool requirements missing %s", want)
		}
	}
	if names["nmdctl"] {
		t.Error("parity pool requirements should not include nmdctl")
	}
}

func TestRequirementsKernelArray(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(cfg, disk.BackendKernelArray)

	names := requirementNames(reqs)
	if !names["nmdctl"] {
		t.Error("kernel array requirements missing nmdctl")
	}
	if names["snapraid"] || names["mergerfs"] {
		t.Error("kernel array requirements should not include parity pool tools")
	}
}

func TestRequirementsSambaOptional(t *testing.T) {
	cfg := config.Default()
	for _, req := range Requirements(cfg, disk.BackendParityPool) {
		if req.Name == "smbd" {
			if !req.Optional {
				t.Fatal("smbd should be optional")
			}
			return
		}
	}
	t.Fatal("smbd requirement not present")
}

func requirementNames(reqs []Requirement) map[string]bool {
	names := make(map[string]bool, len(reqs))
	for _, req := range reqs {
		names[req.Name] = true
	}
	return names
}
