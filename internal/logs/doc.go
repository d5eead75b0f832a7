// Package logs provides daemon log tailing for the CLI.
//
// It reads log files with bounded memory, supports "last N lines" requests
// via a negative cursor, and powers follow-mode updates for
// `platter logs --follow`. Callers supply context deadlines so polling
// shuts down cleanly when the CLI exits.
package logs
