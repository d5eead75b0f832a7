package appliance

import (
	"time"

	"platter/internal/disk"
)

// DiskInfo pairs a discovered disk with its persisted pool role.
type DiskInfo struct {
	disk.Physical
	Role disk.Role `json:"role"`
}

// DiskInventory lists physical disks with their persisted roles. Scans are
// cached briefly; hotplug events invalidate the cache so a freshly inserted
// disk shows up on the next request.
func (a *Appliance) DiskInventory() ([]DiskInfo, error) {
	a.invMu.Lock()
	physical := a.invCached
	fresh := physical != nil && time.Since(a.invAt) < inventoryTTL
	a.invMu.Unlock()

	if !fresh {
		scanned, err := a.scan()
		if err != nil {
			return nil, err
		}
		a.invMu.Lock()
		a.invCached = scanned
		a.invAt = time.Now()
		a.invMu.Unlock()
		physical = scanned
	}

	current := a.store.Current()
	infos := make([]DiskInfo, 0, len(physical))
	for _, p := range physical {
		infos = append(infos, DiskInfo{Physical: p, Role: current.RoleOf(p.Name)})
	}
	return infos, nil
}

// InvalidateInventory drops the cached disk scan. The hotplug monitor
// calls this when the kernel reports a disk added or removed.
func (a *Appliance) InvalidateInventory() {
	a.invMu.Lock()
	a.invCached = nil
	a.invAt = time.Time{}
	a.invMu.Unlock()
}
