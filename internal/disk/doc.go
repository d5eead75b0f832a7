// Package disk defines the storage-pool vocabulary: disk roles, backend
// selection, role-plan validation, and the derived device/partition/mount
// assignment that every other component consumes. It also exposes the
// physical disk inventory backed by sysfs.
package disk
