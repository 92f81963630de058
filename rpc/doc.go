// Package rpc implements the bridge's local messaging channel.
//
// # Overview
//
// The bridge and its companion debug adapter communicate over a unix
// socket whose path is derived from the project root, carrying
// newline-delimited JSON-RPC 2.0 messages. The channel is bidirectional:
//
//  1. Inbound requests: the adapter calls methods such as launch,
//     getPackagerPort, and openFileAtLocation; the channel dispatches
//     them through its method table and writes a response.
//
//  2. Outbound notifications: the bridge pushes fire-and-forget commands
//     (emitShowDevMenu, emitReloadApp) at the connected adapter.
//
// # Socket recovery
//
// A crashed prior instance can leave its socket file behind, so a bind
// conflict is ambiguous. Start resolves it with a probe connection:
//
//	bind fails (address in use)
//	    ↓
//	probe dial the socket
//	    ↓
//	connects → a live bridge owns it: abort, leave the file alone
//	refused  → stale artifact: remove the file, rebind
//
// Up to three bind attempts are made per Start call; a persistent
// re-occupier fails fast.
//
// # Components
//
// Channel: owns the bound endpoint, the method table, the accept loop,
// and outbound notification delivery. Dispose is idempotent and also
// releases the device log monitor.
//
// Collaborators/RegisterMethods: wire the inbound method surface to the
// settings provider, telemetry sink, editor document service, and launch
// orchestrator.
//
// Client: the adapter side. Call sends a request and waits for its
// response; Notifications delivers pushed commands.
//
// # Timeouts
//
// Socket reads and writes are bounded (10 seconds) so a wedged peer
// cannot hang the channel; reads time out and retry until disposal.
package rpc
