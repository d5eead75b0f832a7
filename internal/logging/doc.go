// Package logging assembles the structured slog loggers shared by the
// platter daemon and CLI.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestration code can
// automatically tag log lines with the operation kind, run ID, and the disk
// or step being worked on. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing guarantees.
package logging
