// Package appliance coordinates every storage operation the daemon
// exposes: pool submission, parity maintenance, kernel-array management,
// disk inventory, and operation history.
//
// The appliance is the single place where backend gating happens. Each
// entry point checks the active backend before touching any tool, so a
// parity-pool host can never start an array pipeline and vice versa.
// Long-running work is handed to the operation supervisor; the appliance
// itself never blocks a caller on sync or configure runs.
package appliance
