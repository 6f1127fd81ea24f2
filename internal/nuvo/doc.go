// Package nuvo defines the boundary to the nuvo-serial driver service, which
// owns the physical RS-232 link to the Grand Concerto / Essentia G amplifier.
//
// The package provides:
//   - Typed messages mirroring the amplifier's status reports (ZoneStatus,
//     ZoneEQStatus, SourceConfiguration, ...)
//   - The Driver interface consumed by the zone, controls and bridge packages
//   - Client, a line-delimited JSON-over-TCP implementation of Driver that
//     talks to the companion nuvo-serial daemon
//
// Commands are request/response exchanges correlated by id. The amplifier
// additionally pushes unsolicited status messages (front-panel key presses,
// keypad buttons, status echoes); these are dispatched to subscribers
// registered with Subscribe, in registration order.
//
// The client carries no reconnection logic. A lost driver connection
// surfaces as errors on every call and the daemon is expected to be
// restarted by its supervisor.
package nuvo
