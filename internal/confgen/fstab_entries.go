package confgen

import (
	"fmt"
	"path/filepath"

	"platter/internal/disk"
)

// FstabEntries renders the boot-time mount table lines for the assignment.
// Every prepared partition gets an ext4 entry; under the parity-pool backend
// a fuse.mergerfs entry unions the data mounts onto the pool mount. The
// kernel-array backend returns no entries because the array tool mounts its
// members itself.
func FstabEntries(a disk.Assignment, backend disk.Backend, unionOptions, poolMount string) []string {
	if backend == disk.BackendKernelArray {
		return nil
	}
	entries := make([]string, 0, len(a.Data)+len(a.Parity)+len(a.Cache)+1)
	for _, entry := range a.All() {
		entries = append(entries, fmt.Sprintf("%s %s ext4 defaults,nofail 0 2", entry.Partition, entry.MountPoint))
	}
	if len(a.Data) > 0 && poolMount != "" {
		entries = append(entries, fmt.Sprintf("%s %s fuse.mergerfs %s 0 0", dataMountGlob(a), poolMount, unionOptions))
	}
	return entries
}

// dataMountGlob returns the wildcard covering every data-disk mount point.
// BuildAssignment places them all under one base directory with a shared
// "disk" prefix.
func dataMountGlob(a disk.Assignment) string {
	return filepath.Join(filepath.Dir(a.Data[0].MountPoint), "disk*")
}
