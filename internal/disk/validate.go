package disk

import (
	"fmt"
	"regexp"
	"strings"

	"platter/internal/services"
)

// physicalNamePattern matches bare kernel names of disks that may join the
// pool: SATA/SAS, legacy IDE, virtio, Xen, NVMe, and eMMC devices.
var physicalNamePattern = regexp.MustCompile(`^(sd[a-z]+|hd[a-z]+|vd[a-z]+|xvd[a-z]+|nvme\d+n\d+|mmcblk\d+)$`)

// virtualNamePrefixes lists device families that never qualify: loopbacks,
// RAM disks, device-mapper targets, md arrays, and optical drives.
var virtualNamePrefixes = []string{"loop", "ram", "zram", "dm-", "md", "sr"}

// IsPhysicalName reports whether id names an acceptable physical disk.
func IsPhysicalName(id string) bool {
	if id == "" || strings.ContainsAny(id, "/ \t") {
		return false
	}
	for _, prefix := range virtualNamePrefixes {
		if strings.HasPrefix(id, prefix) {
			return false
		}
	}
	return physicalNamePattern.MatchString(id)
}

// ValidatePlan checks a requested role plan against the backend's rules.
// The first violation wins; the returned error names the rule and the disk.
func ValidatePlan(specs []Spec, backend Backend) error {
	if len(specs) == 0 {
		return planError("at least one disk must be assigned")
	}

	seen := make(map[string]struct{}, len(specs))
	var data, parity, cache int
	for _, spec := range specs {
		id := strings.TrimSpace(spec.ID)
		if id == "" {
			return planError("disk id must not be empty")
		}
		if !IsPhysicalName(id) {
			return planError(fmt.Sprintf("disk %q is not a physical block device", id))
		}
		if _, dup := seen[id]; dup {
			return planError(fmt.Sprintf("disk %q listed more than once", id))
		}
		seen[id] = struct{}{}

		switch spec.Role {
		case RoleData:
			data++
		case RoleParity:
			parity++
		case RoleCache:
			cache++
		case RoleNone:
		default:
			return planError(fmt.Sprintf("disk %q has unknown role %q", id, spec.Role))
		}
	}

	switch backend {
	case BackendParityPool:
		if data == 0 {
			return planError("parity pool requires at least one data disk")
		}
	case BackendKernelArray:
		if data == 0 {
			return planError("kernel array requires at least one data disk")
		}
		if parity != 1 {
			return planError(fmt.Sprintf("kernel array requires exactly one parity disk, got %d", parity))
		}
		if cache > 0 {
			return planError("kernel array does not accept cache disks")
		}
	default:
		return planError(fmt.Sprintf("unknown storage backend %q", backend))
	}

	return nil
}

func planError(message string) error {
	return services.Wrap(services.ErrValidation, "disk", "validate", message, nil)
}
