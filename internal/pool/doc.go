// Package pool mounts a validated pool onto the filesystem: per-disk ext4
// mounts, the mergerfs union over the data disks, share-friendly ownership
// bits, and the persisted fstab block that makes it all survive a reboot.
// Any failure here is a configuration error; callers abort the remaining
// steps of the request and surface the partial step log.
package pool
