// Package zone models amplifier zones and their speaker groups.
//
// A Zone tracks the externally visible state of one amplifier zone: power,
// mute, normalized volume and selected source. State is driven entirely by
// ZoneStatus messages from the driver service; commands issue exactly one
// driver call and apply no state themselves, so physical keypad presses and
// daemon-issued commands flow through the same path.
//
// Each zone owns a SpeakerGroup coordinator implementing the ephemeral
// grouping protocol: one controller zone whose power, mute, volume and
// source changes are mirrored by member zones. Coordination happens over
// the in-process event bus with no central group registry; zones converge
// on a consistent view through member-joined/member-left broadcasts.
// Groups never touch the amplifier's own grouping feature and do not
// survive a restart.
//
// The Manager wires configured zones to the driver subscription stream and
// routes pushed messages to the owning zone.
package zone
