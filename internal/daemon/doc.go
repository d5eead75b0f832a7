// Package daemon coordinates the long-running platter process and system
// integration points.
//
// It wires the appliance, the hotplug monitor, and the maintenance
// scheduler into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon also emits dependency health summaries
// and brokers shutdown requests arriving over IPC.
//
// Keep orchestration logic here: the storage operations themselves live in
// the appliance and its sub-packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
