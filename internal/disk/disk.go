package disk

import (
	"fmt"
	"strings"
)

// Role describes what a disk contributes to the pool.
type Role string

const (
	RoleData   Role = "data"
	RoleParity Role = "parity"
	RoleCache  Role = "cache"
	RoleNone   Role = "none"
)

// ParseRole normalizes a role string. Unknown values return an error naming
// the offending input.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleData:
		return RoleData, nil
	case RoleParity:
		return RoleParity, nil
	case RoleCache:
		return RoleCache, nil
	case RoleNone, "":
		return RoleNone, nil
	default:
		return "", fmt.Errorf("unknown disk role %q", value)
	}
}

// Backend identifies the storage strategy the host runs. The two backends
// are mutually exclusive and selected once at install time.
type Backend string

const (
	// BackendParityPool protects independent filesystems with parity files
	// and presents them through a union mount.
	BackendParityPool Backend = "parity_pool"
	// BackendKernelArray assembles member disks into a parity-protected
	// array managed by a kernel md driver.
	BackendKernelArray Backend = "kernel_array"
)

// ParseBackend normalizes a backend string, defaulting to the parity pool.
func ParseBackend(value string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case BackendParityPool, "":
		return BackendParityPool, nil
	case BackendKernelArray:
		return BackendKernelArray, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q", value)
	}
}

// Spec is one requested disk assignment: a bare kernel device name, the role
// it should play, and whether the disk must be partitioned and formatted.
type Spec struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Format bool   `json:"format,omitempty"`
}

// Device returns the absolute block-device path for the spec.
func (s Spec) Device() string {
	return "/dev/" + s.ID
}

// Partition returns the first-partition device path, honoring the kernel
// naming rule that devices ending in a digit take a "p" separator.
func (s Spec) Partition() string {
	return "/dev/" + PartitionName(s.ID)
}

// PartitionName derives the first-partition name for a disk name.
func PartitionName(id string) string {
	if id == "" {
		return ""
	}
	last := id[len(id)-1]
	if last >= '0' && last <= '9' {
		return id + "p1"
	}
	return id + "1"
}
