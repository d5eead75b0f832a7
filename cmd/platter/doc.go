// Package main hosts the platter CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into JSON-RPC
// calls against the daemon: pool submission, parity operations, array
// control, run history, log tailing, and daemon lifecycle management. It
// centralizes configuration resolution and socket discovery so subcommands
// can focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
