// Package prepare partitions and formats the disks of a submitted pool
// plan. Each disk flagged for formatting gets a fresh GPT label, a single
// full-size partition, and an ext4 filesystem labelled after its pool role.
// Failures on one disk are recorded as warnings and do not stop the other
// disks from being prepared.
package prepare
