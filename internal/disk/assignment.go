package disk

import (
	"fmt"
	"path/filepath"
)

// Entry pairs a spec with the derived device paths and mount point it will
// occupy once the pool is configured.
type Entry struct {
	Spec       Spec
	Device     string
	Partition  string
	MountPoint string
	Ordinal    int
}

// Label returns the filesystem label written during formatting.
func (e Entry) Label() string {
	return fmt.Sprintf("%s%d", e.Spec.Role, e.Ordinal)
}

// Assignment groups the plan's entries by role. Ordinals are assigned per
// role in input order, starting at 1, so resubmitting the same plan yields
// identical paths.
type Assignment struct {
	Data   []Entry
	Parity []Entry
	Cache  []Entry
}

// BuildAssignment derives device, partition, and mount-point paths for every
// disk with a pool role. Disks with RoleNone are skipped.
func BuildAssignment(specs []Spec, mountBase string) Assignment {
	var a Assignment
	for _, spec := range specs {
		switch spec.Role {
		case RoleData:
			a.Data = append(a.Data, entryFor(spec, mountBase, "disk", len(a.Data)+1))
		case RoleParity:
			a.Parity = append(a.Parity, entryFor(spec, mountBase, "parity", len(a.Parity)+1))
		case RoleCache:
			a.Cache = append(a.Cache, entryFor(spec, mountBase, "cache", len(a.Cache)+1))
		}
	}
	return a
}

// All returns every entry in role order: data, parity, cache.
func (a Assignment) All() []Entry {
	out := make([]Entry, 0, len(a.Data)+len(a.Parity)+len(a.Cache))
	out = append(out, a.Data...)
	out = append(out, a.Parity...)
	out = append(out, a.Cache...)
	return out
}

// Empty reports whether no disk holds a pool role.
func (a Assignment) Empty() bool {
	return len(a.Data) == 0 && len(a.Parity) == 0 && len(a.Cache) == 0
}

func entryFor(spec Spec, mountBase, prefix string, ordinal int) Entry {
	return Entry{
		Spec:       spec,
		Device:     spec.Device(),
		Partition:  spec.Partition(),
		MountPoint: filepath.Join(mountBase, fmt.Sprintf("%s%d", prefix, ordinal)),
		Ordinal:    ordinal,
	}
}
