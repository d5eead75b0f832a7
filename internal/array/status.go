package array

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"platter/internal/logging"
)

// Status combines the array tool's report with a usage snapshot per data
// disk. It is derived fresh on every request and never persisted.
type Status struct {
	State       string      `json:"state"`
	Started     bool        `json:"started"`
	ParityValid bool        `json:"parityValid"`
	ParityDisk  string      `json:"parityDisk,omitempty"`
	Disks       []DiskUsage `json:"disks,omitempty"`
}

// DiskUsage reports filesystem occupancy for one mounted member.
type DiskUsage struct {
	Disk        string `json:"disk"`
	MountPoint  string `json:"mountPoint"`
	TotalBytes  uint64 `json:"totalBytes"`
	UsedBytes   uint64 `json:"usedBytes"`
	FreeBytes   uint64 `json:"freeBytes"`
	UsedPercent int    `json:"usedPercent"`
}

// Status queries the array tool and attaches per-disk usage. Disks whose
// mount points cannot be inspected stay in the report with zero counters
// rather than disappearing from the view.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	raw, err := m.client.Status(ctx)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		State:       raw.State,
		Started:     raw.Started(),
		ParityValid: raw.ParityValid,
		ParityDisk:  raw.ParityDisk,
	}
	for i, id := range raw.DataDisks {
		mountPoint := filepath.Join(m.cfg.Paths.MountBase, fmt.Sprintf("disk%d", i+1))
		usage, err := usageFor(id, mountPoint)
		if err != nil {
			m.logger.Debug("disk usage unavailable",
				logging.String(logging.FieldDisk, id),
				logging.String(logging.FieldPath, mountPoint),
				logging.Error(err))
			usage = DiskUsage{Disk: id, MountPoint: mountPoint}
		}
		status.Disks = append(status.Disks, usage)
	}
	return status, nil
}

func usageFor(id, mountPoint string) (DiskUsage, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(mountPoint, &fs); err != nil {
		return DiskUsage{}, err
	}

	blockSize := uint64(fs.Bsize)
	total := fs.Blocks * blockSize
	free := fs.Bavail * blockSize
	used := (fs.Blocks - fs.Bfree) * blockSize

	usage := DiskUsage{
		Disk:       id,
		MountPoint: mountPoint,
		TotalBytes: total,
		UsedBytes:  used,
		FreeBytes:  free,
	}
	if total > 0 {
		usage.UsedPercent = int(used * 100 / total)
	}
	return usage, nil
}
