// Package supervisor tracks the long-running background operations the
// daemon spawns: parity sync, scrub, parity check, and the kernel-array
// configure pipeline. Each operation kind owns one tracker, a mutex-guarded
// state machine fed by the subprocess's output lines. Callers poll trackers
// for progress snapshots; nothing here blocks on the subprocess itself.
package supervisor
