package deps

import (
	"platter/internal/config"
	"platter/internal/disk"
)

// Requirements builds the binary checklist for the active backend. The
// partitioning tools are needed by both backends; the parity and union
// tools only by the backend that invokes them.
func Requirements(cfg *config.Config, backend disk.Backend) []Requirement {
	reqs := []Requirement{
		{Name: "parted", Command: cfg.PartedBinary(), Description: "Partitions disks during preparation"},
		{Name: "partprobe", Command: cfg.PartprobeBinary(), Description: "Reloads partition tables after partitioning"},
		{Name: "mkfs.ext4", Command: cfg.MkfsBinary(), Description: "Creates filesystems on prepared disks"},
		{Name: "mount", Command: cfg.MountBinary(), Description: "Mounts member filesystems"},
		{Name: "umount", Command: cfg.UmountBinary(), Description: "Unmounts member filesystems"},
	}

	switch backend {
	case disk.BackendKernelArray:
		reqs = append(reqs,
			Requirement{Name: "nmdctl", Command: cfg.Array.Binary, Description: "Manages the kernel storage array"},
		)
	default:
		reqs = append(reqs,
			Requirement{Name: "snapraid", Command: cfg.Snapraid.Binary, Description: "Maintains parity for pool members"},
			Requirement{Name: "mergerfs", Command: cfg.Mergerfs.Binary, Description: "Presents pool members as one filesystem"},
		)
	}

	reqs = append(reqs, Requirement{
		Name:        "smbd",
		Command:     "smbd",
		Description: "Serves the generated share definitions",
		Optional:    true,
	})
	return reqs
}

// Snapshot checks the backend's requirements in one call.
func Snapshot(cfg *config.Config, backend disk.Backend) []Status {
	return CheckBinaries(Requirements(cfg, backend))
}
