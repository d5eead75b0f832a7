// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and the error
// encoding that carries sentinel classifications across the wire. The server
// embeds the daemon while the client restores sentinels after net/rpc
// flattens handler errors to strings, so errors.Is gives CLI commands the
// same answers it gives daemon-side code.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable and compatible with existing command implementations.
package ipc
